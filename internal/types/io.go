package types

import "fmt"

// IOState is one sampled view of every sensor line, already normalized so
// that true means active.
type IOState struct {
	LimitOpen   bool
	LimitClosed bool
	Photocell   bool
	PushButton  bool
	RemoteOpen  bool
}

// LimitsContradict reports both end-of-travel switches active at once.
func (s IOState) LimitsContradict() bool {
	return s.LimitOpen && s.LimitClosed
}

// BetweenLimits reports neither end-of-travel switch active.
func (s IOState) BetweenLimits() bool {
	return !s.LimitOpen && !s.LimitClosed
}

func (s IOState) String() string {
	return fmt.Sprintf("lo=%t lc=%t ftc=%t pb=%t ro=%t",
		s.LimitOpen, s.LimitClosed, s.Photocell, s.PushButton, s.RemoteOpen)
}
