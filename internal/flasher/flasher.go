// Package flasher drives the STM32 factory UART bootloader: boot entry,
// autobaud, discovery, mass erase, chunked writes and the optional jump to
// the freshly written application.
package flasher

import (
	"fmt"
	"time"

	"github.com/KercyDing/probe-flasher/internal/hexfile"
	"github.com/KercyDing/probe-flasher/internal/protocol"
	"github.com/KercyDing/probe-flasher/internal/serial"
)

// Options configures an identify or flash call.
type Options struct {
	BaudRate    int
	BootMode    serial.BootMode
	Lines       serial.BootLineConfig
	Verify      bool // reserved; accepted but not implemented
	ResetAfter  bool
	ReadTimeout time.Duration
}

// DefaultOptions returns the stock configuration: 115200 baud, no boot
// entry sequence, 800ms per-byte read timeout.
func DefaultOptions() Options {
	return Options{
		BaudRate:    115200,
		BootMode:    serial.BootModeNone,
		Lines:       serial.DefaultBootLineConfig(),
		Verify:      false,
		ResetAfter:  false,
		ReadTimeout: 800 * time.Millisecond,
	}
}

// IdentifyResult reports what the bootloader said about itself.
type IdentifyResult struct {
	OK                bool
	BootloaderVersion *byte
	SupportedCommands []byte
	ProductID         *uint16
	Error             string
}

// Identify enters the bootloader on the named port and queries its version,
// command set and product id. A GET ID failure is non-fatal; the product id
// is simply reported as absent.
func Identify(portName string, opts Options, log Logger) IdentifyResult {
	port, err := serial.Open(portName, opts.BaudRate)
	if err != nil {
		return identifyFailure(err)
	}
	defer port.Close()

	if err := serial.ApplyBootMode(port, opts.BootMode, opts.Lines); err != nil {
		return identifyFailure(err)
	}

	return identifyWith(newSession(port, opts.ReadTimeout, log))
}

func identifyWith(s *session) IdentifyResult {
	if err := s.sync(); err != nil {
		return identifyFailure(err)
	}

	version, cmds, err := s.getInfo()
	if err != nil {
		return identifyFailure(err)
	}

	result := IdentifyResult{
		OK:                true,
		BootloaderVersion: &version,
		SupportedCommands: cmds,
	}

	if pid, err := s.getID(); err == nil {
		result.ProductID = &pid
	}

	return result
}

func identifyFailure(err error) IdentifyResult {
	return IdentifyResult{OK: false, Error: err.Error()}
}

// FlashHex parses an Intel HEX file and programs it into the target's
// flash over the named port: boot entry, autobaud, GET, mass erase, then
// chunked writes. When opts.ResetAfter is set the target is launched with
// GO (falling back to a hardware reset pulse on failure).
func FlashHex(portName, hexPath string, opts Options, log Logger) error {
	image, err := hexfile.ParseFile(hexPath)
	if err != nil {
		return err
	}
	blocks := image.Blocks()

	log.Line(LevelInfo, fmt.Sprintf("已加载固件：%d 字节", image.Len()))

	port, err := serial.Open(portName, opts.BaudRate)
	if err != nil {
		return err
	}
	defer port.Close()

	if err := serial.ApplyBootMode(port, opts.BootMode, opts.Lines); err != nil {
		return err
	}

	s := newSession(port, opts.ReadTimeout, log)
	return flashWith(s, blocks, image.Len(), opts)
}

func flashWith(s *session, blocks []hexfile.Block, total int, opts Options) error {
	s.log.Line(LevelInfo, "正在连接 Bootloader...")
	if err := s.sync(); err != nil {
		return err
	}

	s.log.Line(LevelInfo, "正在查询支持的命令...")
	_, cmds, err := s.getInfo()
	if err != nil {
		return err
	}

	s.log.Line(LevelInfo, "正在擦除...")
	if err := s.eraseAll(cmds); err != nil {
		return err
	}

	s.log.Line(LevelInfo, "正在写入...")
	if err := s.writeImage(blocks, total); err != nil {
		return err
	}

	if opts.ResetAfter {
		if contains(cmds, protocol.CmdGo) {
			s.log.Line(LevelInfo, "正在启动用户程序...")
			if err := s.goCommand(protocol.UserFlashBase); err != nil {
				s.log.Line(LevelWarn, fmt.Sprintf("GO 命令失败: %v, 尝试硬件复位", err))
				if err := serial.HardwareReset(s.t); err != nil {
					return err
				}
			}
		} else {
			s.log.Line(LevelInfo, "正在复位以运行用户程序...")
			if err := serial.HardwareReset(s.t); err != nil {
				return err
			}
		}
		s.log.Line(LevelInfo, "程序已启动")
	}

	if opts.Verify {
		s.log.Line(LevelWarn, "verify not implemented yet")
	}

	return nil
}

// writeImage streams the contiguous blocks in strides of at most 256
// bytes, emitting a progress line after every chunk. total is the image
// byte count; it matches the sum of the chunk sizes by construction.
func (s *session) writeImage(blocks []hexfile.Block, total int) error {
	written := 0

	for _, blk := range blocks {
		for offset := 0; offset < len(blk.Data); offset += protocol.MaxWriteChunk {
			end := offset + protocol.MaxWriteChunk
			if end > len(blk.Data) {
				end = len(blk.Data)
			}
			chunk := blk.Data[offset:end]

			if err := s.writeMemory(blk.Addr+uint32(offset), chunk); err != nil {
				return err
			}

			written += len(chunk)
			s.log.Line(LevelInfo, fmt.Sprintf("PROGRESS:写入中:%d:%d", written, total))
		}
	}

	return nil
}
