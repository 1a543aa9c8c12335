package version

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CompareTestSuite struct {
	suite.Suite
}

func TestCompareSuite(t *testing.T) {
	suite.Run(t, new(CompareTestSuite))
}

func (suite *CompareTestSuite) TestCompatibleVersions() {
	tests := []struct {
		name   string
		engine string
		config string
	}{
		{"exact match", "1.0.0", "1.0.0"},
		{"patch differs", "1.0.1", "1.0.0"},
		{"v prefix", "v1.0.0", "1.0.0"},
		{"engine dev build", "main", "1.0.0"},
		{"config dev build", "1.0.0", "main"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.NoError(CheckSchemaCompatibility(tc.engine, tc.config))
		})
	}
}

func (suite *CompareTestSuite) TestIncompatibleVersions() {
	tests := []struct {
		name   string
		engine string
		config string
	}{
		{"major differs", "2.0.0", "1.0.0"},
		{"minor differs", "1.1.0", "1.0.0"},
		{"garbage engine", "not-a-version", "1.0.0"},
		{"garbage config", "1.0.0", "not-a-version"},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Error(CheckSchemaCompatibility(tc.engine, tc.config))
		})
	}
}
