package wavedump

import (
	"encoding/json"
	"fmt"
)

type ChargeMethod int

const (
	Fixed ChargeMethod = iota
	Dynamic
)

var chargeMethodStrings = []string{
	"fixed",
	"dynamic",
}

func (c ChargeMethod) String() string {
	if c < Fixed || c > Dynamic {
		return "UNKNOWN"
	}
	return chargeMethodStrings[c]
}

func ParseChargeMethod(s string) (ChargeMethod, error) {
	for i, v := range chargeMethodStrings {
		if v == s {
			return ChargeMethod(i), nil
		}
	}
	return Fixed, fmt.Errorf("invalid charge method: %s", s)
}

func (c ChargeMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ChargeMethod) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseChargeMethod(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Window is a pair of sample counts. For Fixed charge integration it holds
// the absolute (start, end) indices; for Dynamic it holds the number of
// samples taken before and after the peak.
type Window [2]int

// ChannelConfig holds the validated processing parameters of one channel.
// Values are only built through NewChannelConfig and cannot be modified.
type ChannelConfig struct {
	channelID       int
	polarity        int
	baselineSamples int
	chargeMethod    ChargeMethod
	chargeWindow    Window
	threshold       float64
	cfdFraction     float64
}

func NewChannelConfig(channelID int, polarity int, baselineSamples int, method ChargeMethod,
	window Window, threshold float64, cfdFraction float64) (ChannelConfig, error) {
	if channelID < 0 {
		return ChannelConfig{}, &ConfigError{ChannelID: channelID, Field: "channel_id", Value: channelID,
			Reason: "must be non-negative"}
	}
	if polarity != 1 && polarity != -1 {
		return ChannelConfig{}, &ConfigError{ChannelID: channelID, Field: "polarity", Value: polarity,
			Reason: "must be 1 or -1"}
	}
	if baselineSamples <= 0 {
		return ChannelConfig{}, &ConfigError{ChannelID: channelID, Field: "baseline_samples", Value: baselineSamples,
			Reason: "must be positive"}
	}
	if method != Fixed && method != Dynamic {
		return ChannelConfig{}, &ConfigError{ChannelID: channelID, Field: "charge_method", Value: int(method),
			Reason: "must be fixed or dynamic"}
	}
	// NaN fails both comparisons, so the condition is written to reject it
	if !(cfdFraction > 0 && cfdFraction < 1) {
		return ChannelConfig{}, &ConfigError{ChannelID: channelID, Field: "cfd_fraction", Value: cfdFraction,
			Reason: "must be between 0 and 1"}
	}
	return ChannelConfig{
		channelID:       channelID,
		polarity:        polarity,
		baselineSamples: baselineSamples,
		chargeMethod:    method,
		chargeWindow:    window,
		threshold:       threshold,
		cfdFraction:     cfdFraction,
	}, nil
}

func (c ChannelConfig) ChannelID() int             { return c.channelID }
func (c ChannelConfig) Polarity() int              { return c.polarity }
func (c ChannelConfig) BaselineSamples() int       { return c.baselineSamples }
func (c ChannelConfig) ChargeMethod() ChargeMethod { return c.chargeMethod }
func (c ChannelConfig) ChargeWindow() Window       { return c.chargeWindow }
func (c ChannelConfig) Threshold() float64         { return c.threshold }
func (c ChannelConfig) CFDFraction() float64       { return c.cfdFraction }

func (c ChannelConfig) String() string {
	return fmt.Sprintf("ch%d: polarity %+d, baseline %d samples, %s charge window %v, threshold %g, cfd %g",
		c.channelID, c.polarity, c.baselineSamples, c.chargeMethod, c.chargeWindow, c.threshold, c.cfdFraction)
}

type channelConfigJSON struct {
	ChannelID       int      `json:"channel_id"`
	Polarity        int      `json:"polarity"`
	BaselineSamples int      `json:"baseline_samples"`
	ChargeMethod    string   `json:"charge_method"`
	ChargeWindow    Window   `json:"charge_window"`
	Threshold       float64  `json:"threshold"`
	CFDFraction     *float64 `json:"cfd_fraction"`
}

func (c ChannelConfig) MarshalJSON() ([]byte, error) {
	cfd := c.cfdFraction
	return json.Marshal(channelConfigJSON{
		ChannelID:       c.channelID,
		Polarity:        c.polarity,
		BaselineSamples: c.baselineSamples,
		ChargeMethod:    c.chargeMethod.String(),
		ChargeWindow:    c.chargeWindow,
		Threshold:       c.threshold,
		CFDFraction:     &cfd,
	})
}

func (c *ChannelConfig) UnmarshalJSON(data []byte) error {
	// Set default values
	raw := channelConfigJSON{
		BaselineSamples: 100,
		ChargeMethod:    "dynamic",
		ChargeWindow:    Window{0, 100},
		Threshold:       10.0,
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	cfd := 0.5
	if raw.CFDFraction != nil {
		cfd = *raw.CFDFraction
	}
	method, err := ParseChargeMethod(raw.ChargeMethod)
	if err != nil {
		return &ConfigError{ChannelID: raw.ChannelID, Field: "charge_method", Value: raw.ChargeMethod,
			Reason: "must be fixed or dynamic"}
	}
	parsed, err := NewChannelConfig(raw.ChannelID, raw.Polarity, raw.BaselineSamples, method,
		raw.ChargeWindow, raw.Threshold, cfd)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// DefaultChannelConfigs returns the configuration used when none is given:
// a trigger on channel 0, an MPPC on channel 1 and a negative PMT on channel 2.
func DefaultChannelConfigs() []ChannelConfig {
	return []ChannelConfig{
		mustChannelConfig(0, 1, 100, Fixed, Window{0, 200}, 20.0, 0.5),
		mustChannelConfig(1, 1, 100, Dynamic, Window{50, 150}, 15.0, 0.3),
		mustChannelConfig(2, -1, 100, Dynamic, Window{50, 150}, 10.0, 0.5),
	}
}

func mustChannelConfig(channelID int, polarity int, baselineSamples int, method ChargeMethod,
	window Window, threshold float64, cfdFraction float64) ChannelConfig {
	c, err := NewChannelConfig(channelID, polarity, baselineSamples, method, window, threshold, cfdFraction)
	if err != nil {
		panic(err)
	}
	return c
}
