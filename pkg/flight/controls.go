package flight

// Controls is the discrete intent snapshot sampled once per update.
//
// ToggleGear and Reset are press events: the input layer sets them in exactly one snapshot per key
// press. The engine reads them but never writes back.
type Controls struct {
	PitchUp      bool `json:"pitch_up"`
	PitchDown    bool `json:"pitch_down"`
	RollLeft     bool `json:"roll_left"`
	RollRight    bool `json:"roll_right"`
	YawLeft      bool `json:"yaw_left"`
	YawRight     bool `json:"yaw_right"`
	ThrottleUp   bool `json:"throttle_up"`
	ThrottleDown bool `json:"throttle_down"`
	ToggleGear   bool `json:"toggle_gear"`
	Reset        bool `json:"reset"`
}

// Axes are the smoothed control commands, each in [-1, 1].
type Axes struct {
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
	Yaw   float64 `json:"yaw"`
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// target returns the axis targets the smoother converges to.
// Positive pitch raises the nose, so PitchDown (stick back) drives it positive and PitchUp lowers it.
// Positive roll is left bank, positive yaw is nose left.
func (c Controls) target() Axes {
	return Axes{
		Pitch: boolf(c.PitchDown) - boolf(c.PitchUp),
		Roll:  boolf(c.RollLeft) - boolf(c.RollRight),
		Yaw:   boolf(c.YawLeft) - boolf(c.YawRight),
	}
}
