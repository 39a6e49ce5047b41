package hardware

const (
	DefaultChip     = "gpiochip0"
	DefaultConsumer = "gate-service"
)

// Input channels
const (
	InLimitOpen   = "limit_open"
	InLimitClosed = "limit_closed"
	InPhotocell   = "photocell"
	InPushButton  = "push_button"
	InRemoteOpen  = "remote_open"
)

// Output channels
const (
	OutDriveOpen  = "drive_open"
	OutDriveClose = "drive_close"
	OutLamp       = "lamp"
)

type LineMapping struct {
	Line      int // chip line offset, BCM number on a Raspberry Pi
	ActiveLow bool
}

// InputChannels fixes the order of the batched input request.
var InputChannels = []string{
	InLimitOpen,
	InLimitClosed,
	InPhotocell,
	InPushButton,
	InRemoteOpen,
}

// The open limit and the push button pull their line low when active,
// everything else is active high. All inputs are pulled up.
var DiMappings = map[string]LineMapping{
	InLimitOpen:   {Line: 17, ActiveLow: true},
	InLimitClosed: {Line: 27},
	InPhotocell:   {Line: 22},
	InPushButton:  {Line: 23, ActiveLow: true},
	InRemoteOpen:  {Line: 24},
}

var OutputChannels = []string{
	OutDriveOpen,
	OutDriveClose,
	OutLamp,
}

var DoMappings = map[string]LineMapping{
	OutDriveOpen:  {Line: 5},
	OutDriveClose: {Line: 6},
	OutLamp:       {Line: 13},
}
