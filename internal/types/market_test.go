package types

import (
	"testing"
	"time"

	"github.com/skewlab/overlay-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type MarketTestSuite struct {
	suite.Suite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketTestSuite))
}

func validSeries(n int) []MarketData {
	rows := make([]MarketData, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range rows {
		rows[i] = MarketData{
			Date:  start.AddDate(0, 0, i),
			Spot:  100 + float64(i),
			Rate:  0.03,
			Sigma: 0.6,
		}
	}

	return rows
}

func (suite *MarketTestSuite) TestValidateSeriesAccepts() {
	suite.NoError(ValidateSeries(validSeries(10)))
}

func (suite *MarketTestSuite) TestValidateSeriesEmptyFails() {
	err := ValidateSeries(nil)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeEmptySeries))
}

func (suite *MarketTestSuite) TestValidateSeriesNonPositiveSpot() {
	rows := validSeries(5)
	rows[2].Spot = 0

	err := ValidateSeries(rows)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNonPositivePrice))
}

func (suite *MarketTestSuite) TestValidateSeriesDuplicateDate() {
	rows := validSeries(5)
	rows[3].Date = rows[2].Date

	err := ValidateSeries(rows)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicDates))
}

func (suite *MarketTestSuite) TestValidateSeriesOutOfOrder() {
	rows := validSeries(5)
	rows[1], rows[2] = rows[2], rows[1]

	err := ValidateSeries(rows)
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNonMonotonicDates))
}
