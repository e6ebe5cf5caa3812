package protocol

// STM32 UART bootloader protocol bytes (ST AN3155).
const (
	// Acknowledgement
	Ack  = 0x79
	Nack = 0x1F

	// Autobaud trigger
	SyncByte = 0x7F

	// Commands
	CmdGet           = 0x00
	CmdGetID         = 0x02
	CmdGo            = 0x21
	CmdWriteMemory   = 0x31
	CmdErase         = 0x43
	CmdExtendedErase = 0x44
)

// UserFlashBase is the application entry point in STM32 user flash.
const UserFlashBase = 0x08000000

// MaxWriteChunk is the largest payload a single WRITE_MEMORY accepts.
const MaxWriteChunk = 256

// CommandName returns a human-readable name for a command byte.
func CommandName(cmd byte) string {
	switch cmd {
	case CmdGet:
		return "GET"
	case CmdGetID:
		return "GET_ID"
	case CmdGo:
		return "GO"
	case CmdWriteMemory:
		return "WRITE_MEMORY"
	case CmdErase:
		return "ERASE"
	case CmdExtendedErase:
		return "EXTENDED_ERASE"
	default:
		return "UNKNOWN"
	}
}
