package testtelemetry

import "time"

// Config holds configuration for the telemetry test
type Config struct {
	BaseURL   string        // Base URL of the service
	NumObs    int           // Number of observations to generate per car
	Cars      int           // Number of simulated vehicles
	Timeout   time.Duration // HTTP request timeout
	Color     string        // Target ball color
	RateDelay time.Duration // Delay between observations from the same car
	LogFile   string        // Log file for test output
	Verbose   bool          // Enable verbose logging
}

// Box mirrors the service's normalized bounding box wire format
type Box struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection mirrors the service's detection wire format
type Detection struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
	Box   Box     `json:"box"`
}

// Observation mirrors the service's telemetry wire format
type Observation struct {
	CarID         string      `json:"car_id"`
	TS            int64       `json:"ts"`
	ImageRef      string      `json:"image_ref"`
	BallsCarried  int         `json:"balls_carried"`
	TargetColor   string      `json:"target_color"`
	ObstacleAhead bool        `json:"obstacle_ahead,omitempty"`
	Detections    []Detection `json:"detections,omitempty"`
}

// CommandEntry represents one audited command from GET /commands
type CommandEntry struct {
	ID        string `json:"id"`
	CarID     string `json:"car_id"`
	Goal      string `json:"goal"`
	BallCount int    `json:"ball_count"`
	CreatedAt string `json:"created_at"`
}

// AckResponse represents the response from telemetry submission
type AckResponse struct {
	Status string `json:"status"`
}

// Stats holds test statistics
type Stats struct {
	ObsGenerated      int
	ObsSubmitted      int
	ObsAccepted       int
	ObsDroppedStale   int
	ObsFailed         int
	CommandsRetrieved int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}
