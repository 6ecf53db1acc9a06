// Package mmu implements the address decoder and bank register that sit
// between the CPU core and memory: a logically flat 16-bit address space
// per bank, with the active bank selecting which physical bank answers
// the next access, and one bank optionally forwarded to a peripheral.
package mmu

import (
	"fmt"

	"github.com/AsuMagic/smolisa-tools/isa"
)

// Bank identifies one of the MMU's independent 64 KiB address spaces.
type Bank uint8

// Peripheral is the interface the MMU forwards reads/writes to when the
// active bank is mapped to a peripheral instead of plain RAM. The
// framebuffer (video.FrameBuffer) is the only peripheral this module
// knows about by name; anything satisfying this interface can be mapped
// in its place.
type Peripheral interface {
	GetByte(addr isa.Word) (isa.Byte, error)
	SetByte(addr isa.Word, b isa.Byte) error
}

// PeripheralFault is returned when a peripheral rejects an access (e.g. a
// write to a read-only cell).
type PeripheralFault struct {
	Addr isa.Word
	Err  error
}

func (e *PeripheralFault) Error() string {
	return fmt.Sprintf("peripheral fault at address %#04x: %v", e.Addr, e.Err)
}
func (e *PeripheralFault) Unwrap() error { return e.Err }

// BankSize is the size in bytes of one bank's flat address space.
const BankSize = 0x10000

// MMU owns the RAM banks and routes accesses by the currently active
// bank, dispatching one bank to a peripheral when configured.
type MMU struct {
	banks          [][BankSize]isa.Byte
	current        Bank
	peripheralBank Bank
	peripheral     Peripheral
	hasPeripheral  bool
}

// New creates an MMU with numBanks plain-RAM banks, all zeroed, bank 0
// active.
func New(numBanks int) *MMU {
	return &MMU{banks: make([][BankSize]isa.Byte, numBanks)}
}

// AttachPeripheral routes all accesses to bank b through p instead of
// that bank's RAM. By convention the framebuffer is attached to bank 1
// (spec §6), but the MMU itself is agnostic to which bank carries it.
func (m *MMU) AttachPeripheral(b Bank, p Peripheral) {
	m.peripheralBank = b
	m.peripheral = p
	m.hasPeripheral = true
}

// CurrentBank returns the bank currently selected for access.
func (m *MMU) CurrentBank() Bank { return m.current }

// SetCurrentBank installs b as the active bank, coercing it into range,
// and returns the bank that should now be considered active. The CPU
// writes this return value back into $bank after every instruction
// (spec §4.4 step 6).
func (m *MMU) SetCurrentBank(b Bank) Bank {
	if int(b) >= len(m.banks) {
		b = Bank(int(b) % len(m.banks))
	}
	m.current = b
	return m.current
}

func (m *MMU) bankSlot() *[BankSize]isa.Byte {
	return &m.banks[m.current]
}

// GetByte reads one byte from the active bank, forwarding to the
// peripheral if the active bank is peripheral-mapped.
func (m *MMU) GetByte(addr isa.Word) (isa.Byte, error) {
	if m.hasPeripheral && m.current == m.peripheralBank {
		b, err := m.peripheral.GetByte(addr)
		if err != nil {
			return 0, &PeripheralFault{Addr: addr, Err: err}
		}
		return b, nil
	}
	return m.bankSlot()[addr], nil
}

// SetByte writes one byte to the active bank, forwarding to the
// peripheral if the active bank is peripheral-mapped.
func (m *MMU) SetByte(addr isa.Word, b isa.Byte) error {
	if m.hasPeripheral && m.current == m.peripheralBank {
		if err := m.peripheral.SetByte(addr, b); err != nil {
			return &PeripheralFault{Addr: addr, Err: err}
		}
		return nil
	}
	m.bankSlot()[addr] = b
	return nil
}

// GetWord reads a little-endian 16-bit word as two independent byte
// reads. Misaligned reads (odd addr) are well-defined — there is no
// alignment trap on data access, only on instruction fetch (spec §9).
func (m *MMU) GetWord(addr isa.Word) (isa.Word, error) {
	lo, err := m.GetByte(addr)
	if err != nil {
		return 0, err
	}
	hi, err := m.GetByte(addr + 1)
	if err != nil {
		return 0, err
	}
	return isa.Word(lo) | isa.Word(hi)<<8, nil
}

// SetWord writes a little-endian 16-bit word as two independent byte
// writes, low byte first.
func (m *MMU) SetWord(addr isa.Word, w isa.Word) error {
	if err := m.SetByte(addr, isa.Byte(w)); err != nil {
		return err
	}
	return m.SetByte(addr+1, isa.Byte(w>>8))
}

// LoadImage copies a byte image into the given bank starting at address
// 0, as the emulator CLI does when booting (spec §6).
func (m *MMU) LoadImage(b Bank, image []byte) {
	if int(b) >= len(m.banks) {
		return
	}
	copy(m.banks[b][:], image)
}
