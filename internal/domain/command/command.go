// Package command defines the drive command value type produced by one
// decision cycle, and its incremental builder methods.
package command

import (
	"github.com/okian/rover/internal/domain/types"
)

// Goal identifies the sub-objective that produced a drive command.
type Goal string

// Goal tags.
const (
	GoalSeekBallTurn Goal = "SEEK_BALL_TURN"
	GoalSeekBallMove Goal = "SEEK_BALL_MOVE"
	GoalGoToBall     Goal = "GO_TO_BALL"
	GoalCheckGrip    Goal = "CHECK_GRIP"
	GoalGoToBase     Goal = "GO_TO_BASE"
	GoalSeekHomeTurn Goal = "SEEK_HOME_TURN"
	GoalSeekHomeMove Goal = "SEEK_HOME_MOVE"
	GoalReleaseBall  Goal = "RELEASE_BALL"
	GoalGameEnd      Goal = "GAME_END"
	GoalManual       Goal = "MANUAL"
)

// HomeBound reports whether the goal commits the car to the return-to-base
// objective. Once home-seeking starts the engine must not oscillate back to
// ball-seeking mid-maneuver.
func (g Goal) HomeBound() bool {
	switch g {
	case GoalGoToBase, GoalSeekHomeTurn, GoalSeekHomeMove:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the goal tag.
func (g Goal) String() string { return string(g) }

// ActionKind enumerates the drive primitives the vehicle understands.
type ActionKind string

// Drive primitives.
const (
	ActionTurn          ActionKind = "TURN"           // degrees, positive = right
	ActionMove          ActionKind = "MOVE"           // millimeters, negative = reverse
	ActionSpeed         ActionKind = "SPEED"          // percent of maximum
	ActionGripperOpen   ActionKind = "GRIPPER_OPEN"   //
	ActionGripperClose  ActionKind = "GRIPPER_CLOSE"  //
	ActionSensorRequest ActionKind = "SENSOR_REQUEST" // take the next reading
)

// Action is one primitive in a command's ordered sequence.
type Action struct {
	Kind  ActionKind `json:"kind"`
	Value int        `json:"value,omitempty"`
}

// Command is one decision cycle's output. Actions must be actuated in
// emission order; the sequence is never reordered once built.
type Command struct {
	ID            string     `json:"id,omitempty"`
	CarID         string     `json:"car_id"`
	Mode          types.Mode `json:"mode"`
	Goal          Goal       `json:"goal"`
	CorrelationID int64      `json:"correlation_id"`
	Actions       []Action   `json:"actions,omitempty"`
	BallCount     int        `json:"ball_count,omitempty"`
}

// New starts a command for the given car with the triggering observation's
// timestamp as correlation identifier.
func New(carID string, mode types.Mode, correlationID int64) Command {
	return Command{
		CarID:         carID,
		Mode:          mode,
		CorrelationID: correlationID,
	}
}

// Tag sets the goal tag.
func (c *Command) Tag(g Goal) *Command {
	c.Goal = g
	return c
}

// Turn appends a rotation by degrees. Positive turns right.
func (c *Command) Turn(degrees int) *Command {
	c.Actions = append(c.Actions, Action{Kind: ActionTurn, Value: degrees})
	return c
}

// Move appends a drive by signed millimeters. Negative reverses.
func (c *Command) Move(millimeters int) *Command {
	c.Actions = append(c.Actions, Action{Kind: ActionMove, Value: millimeters})
	return c
}

// Speed appends a speed change as a percent of maximum.
func (c *Command) Speed(percent int) *Command {
	c.Actions = append(c.Actions, Action{Kind: ActionSpeed, Value: percent})
	return c
}

// OpenGripper appends a gripper open.
func (c *Command) OpenGripper() *Command {
	c.Actions = append(c.Actions, Action{Kind: ActionGripperOpen})
	return c
}

// CloseGripper appends a gripper close.
func (c *Command) CloseGripper() *Command {
	c.Actions = append(c.Actions, Action{Kind: ActionGripperClose})
	return c
}

// RequestSensor appends a request for the next sensor reading.
func (c *Command) RequestSensor() *Command {
	c.Actions = append(c.Actions, Action{Kind: ActionSensorRequest})
	return c
}

// AddBallCount records the new carried-ball count on the command. Legal only
// during construction, before the command is dispatched.
func (c *Command) AddBallCount(count int) *Command {
	c.BallCount = count
	return c
}
