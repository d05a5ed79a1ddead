package testtelemetry

import (
	"context"
	"crypto/rand"
	"math/big"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rover/pkg/logger"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	scenarioDivisor    = 8
)

// Detection geometry ranges used by the scenarios.
const (
	farBallSideMin   = 0.03
	farBallSideRange = 0.04
	nearBallSideMin  = 0.12
	nearBallSideRange = 0.10
	homeSideMin      = 0.20
	homeSideRange    = 0.25
	centeredXSpread  = 0.08
	offsetXSpread    = 0.35
	strongScoreMin   = 0.72
	strongScoreRange = 0.26
	weakScoreMax     = 0.45
	highBoxY         = 0.05
	groundBoxYMin    = 0.35
	groundBoxYRange  = 0.40
)

// Constants for scenario cases.
const (
	caseBallFarCentered = 0
	caseBallFarOffset   = 1
	caseBallNear        = 2
	caseEmptyFrame      = 3
	caseFalsePositive   = 4
	caseObstacle        = 5
	caseHomeVisible     = 6
	caseMixedFrame      = 7
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// generateObservations creates per-car observation streams with strictly
// increasing timestamps. The freshness gate drops out-of-order arrivals, so
// ordering within a car matters more than realism of the intervals.
func generateObservations(ctx context.Context, config *Config, stats *Stats) (map[string][]Observation, error) {
	logger.Get().Info(ctx, "generating observations",
		logger.Int("cars", config.Cars),
		logger.Int("perCar", config.NumObs))

	streams := make(map[string][]Observation, config.Cars)
	base := time.Now().UnixMilli() - int64(config.NumObs)*config.RateDelay.Milliseconds()

	total := 0
	for c := 0; c < config.Cars; c++ {
		carID := "car-" + uuid.New().String()[:8]
		obs := make([]Observation, config.NumObs)
		ballsCarried := 0

		for i := 0; i < config.NumObs; i++ {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}

			o := generateSingleObservation(carID, config.Color, ballsCarried)
			o.TS = base + int64(i+1)*maxInt64(config.RateDelay.Milliseconds(), 1)
			o.ImageRef = "frame_" + strconv.Itoa(i) + "_" + uuid.New().String()[:8] + ".jpg"

			// Home scenarios imply the car picked something up along the way.
			if o.BallsCarried > ballsCarried {
				ballsCarried = o.BallsCarried
			}
			obs[i] = o
			total++
		}
		streams[carID] = obs
	}

	stats.ObsGenerated = total
	logger.Get().Info(ctx, "generated observations successfully", logger.Int("count", total))

	return streams, nil
}

// generateSingleObservation draws one scenario and builds its frame.
func generateSingleObservation(carID, color string, ballsCarried int) Observation {
	o := Observation{
		CarID:        carID,
		BallsCarried: ballsCarried,
		TargetColor:  color,
	}
	ballLabel := color + "_ball"

	randNum, _ := rand.Int(rand.Reader, big.NewInt(scenarioDivisor))
	switch randNum.Int64() {
	case caseBallFarCentered:
		o.Detections = []Detection{groundDetection(ballLabel, farBallSideMin+getRandomFloat()*farBallSideRange, centeredXSpread)}
	case caseBallFarOffset:
		o.Detections = []Detection{groundDetection(ballLabel, farBallSideMin+getRandomFloat()*farBallSideRange, offsetXSpread)}
	case caseBallNear:
		o.Detections = []Detection{groundDetection(ballLabel, nearBallSideMin+getRandomFloat()*nearBallSideRange, centeredXSpread)}
	case caseEmptyFrame:
		// No detections; the service falls back to remote perception or search.
	case caseFalsePositive:
		// Low-score box high in the frame: the engine must ignore it.
		d := groundDetection(ballLabel, farBallSideMin, offsetXSpread)
		d.Score = getRandomFloat() * weakScoreMax
		d.Box.Y = highBoxY
		o.Detections = []Detection{d}
	case caseObstacle:
		o.ObstacleAhead = true
		o.Detections = []Detection{groundDetection(ballLabel, farBallSideMin+getRandomFloat()*farBallSideRange, offsetXSpread)}
	case caseHomeVisible:
		o.BallsCarried = ballsCarried + 1
		o.Detections = []Detection{groundDetection("home_base", homeSideMin+getRandomFloat()*homeSideRange, centeredXSpread)}
	case caseMixedFrame:
		o.Detections = []Detection{
			groundDetection(ballLabel, farBallSideMin+getRandomFloat()*farBallSideRange, offsetXSpread),
			groundDetection("red_ball", farBallSideMin, offsetXSpread),
		}
	}

	return o
}

// groundDetection builds a plausibly placed, confidently scored detection.
func groundDetection(label string, side, xSpread float64) Detection {
	cx := 0.5 + (getRandomFloat()*2-1)*xSpread
	return Detection{
		Label: label,
		Score: strongScoreMin + getRandomFloat()*strongScoreRange,
		Box: Box{
			X: cx - side/2,
			Y: groundBoxYMin + getRandomFloat()*groundBoxYRange,
			W: side,
			H: side,
		},
	}
}

// maxInt64 returns the maximum of two int64 values.
func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
