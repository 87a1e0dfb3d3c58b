// Package storage implements the .fds file bridge: decoding a raw side
// image into block-delimited on-wire bytes when loading, and re-encoding
// the block-delimited bytes back into a raw .fds side when saving,
// together with the backup policies settings.BackupPolicy selects.
// Grounded on fdsemu.c's fds_load_side/fds_save/fds_close and on the
// teacher's hfe/read.go file-handling idiom (os.Open, wrapped errors).
package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sergev/fdsdrive/crc"
	"github.com/sergev/fdsdrive/fdsconst"
	"github.com/sergev/fdsdrive/image"
	"github.com/sergev/fdsdrive/settings"
)

// Code enumerates the load/save outcomes spec.md's error handling design
// names, mirroring the FRESULT-like FDSR_* codes fdsemu.c returns
// alongside FatFs's own FR_* codes.
type Code int

const (
	OK Code = iota
	InvalidROM
	ROMTooLarge
	OutOfMemory
	ReadOnly
	WrongCRC
)

func (c Code) Error() string {
	switch c {
	case OK:
		return "ok"
	case InvalidROM:
		return "invalid ROM image"
	case ROMTooLarge:
		return "ROM image too large for one side"
	case OutOfMemory:
		return "out of memory"
	case ReadOnly:
		return "side is read-only"
	case WrongCRC:
		return "block CRC mismatch, refusing to save"
	default:
		return "unknown storage error"
	}
}

// LoadSide opens filename (or, under the EverDrive backup policy, the
// EverDrive save path for filename if one already exists), seeks past any
// 16-byte .fds header, and decodes side's worth of blocks into a freshly
// allocated *image.DiskSide. Decoding stops without error when the file or
// the side's space runs out or a block carries the wrong type tag, as long
// as the blocks kept plus the one that failed number at least the minimum
// implied by the file-count block (two per file, plus two); below that it
// returns ROMTooLarge when space ran out and InvalidROM otherwise. Mirrors
// fds_load_side.
func LoadSide(filename string, side int, readonly bool, policy settings.BackupPolicy) (*image.DiskSide, error) {
	openFilename := filename
	if policy == settings.BackupEverdrive {
		if altFilename, err := backupPath(filename, policy); err == nil {
			if _, err := os.Stat(altFilename); err == nil {
				openFilename = altFilename
			}
		}
	}

	f, err := os.Open(openFilename)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open %s: %w", openFilename, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("storage: failed to stat %s: %w", filename, err)
	}
	size := info.Size()
	if size%fdsconst.RomSideSize != 0 && size%fdsconst.RomSideSize != fdsconst.RomHeaderSize {
		return nil, InvalidROM
	}

	headerOffset := int64(0)
	if size%fdsconst.RomSideSize == fdsconst.RomHeaderSize {
		headerOffset = fdsconst.RomHeaderSize
	}
	if _, err := f.Seek(headerOffset+int64(side)*fdsconst.RomSideSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("storage: failed to seek to side %d: %w", side, err)
	}

	d := image.New(filename, side, readonly)
	minBlocks := 0

	for {
		i := d.BlockCount()
		if i == 2 {
			minBlocks = int(d.Raw[d.BlockOffsets[1]+fdsconst.NextGapBytes+1])*2 + 2
		}

		gap := fdsconst.NextGapBytes
		if i == 0 {
			gap = fdsconst.FirstGapBytes
		}
		d.BlockOffsets = append(d.BlockOffsets, d.UsedSpace)

		if d.UsedSpace+gap > fdsconst.MaxSideSize {
			d.BlockOffsets = d.BlockOffsets[:i]
			if i+1 < minBlocks {
				return nil, ROMTooLarge
			}
			break
		}

		gapStart := d.UsedSpace
		end, err := d.WriteGap(gapStart, i)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		d.UsedSpace = end

		blockType := image.BlockType(i)
		blockSize, err := d.BlockBodySize(i)
		if err != nil {
			d.BlockOffsets = d.BlockOffsets[:i]
			d.UsedSpace = gapStart
			break
		}

		if d.UsedSpace+blockSize+2 > fdsconst.MaxSideSize {
			d.BlockOffsets = d.BlockOffsets[:i]
			if i+1 < minBlocks {
				return nil, ROMTooLarge
			}
			d.Raw[d.UsedSpace-1] = 0
			d.UsedSpace = gapStart
			break
		}

		n, err := io.ReadFull(f, d.Raw[d.UsedSpace:d.UsedSpace+blockSize])
		if err != nil || n != blockSize {
			d.BlockOffsets = d.BlockOffsets[:i]
			if i+1 < minBlocks {
				return nil, InvalidROM
			}
			d.Raw[d.UsedSpace-1] = 0
			d.UsedSpace = gapStart
			break
		}

		if d.Raw[d.UsedSpace] != blockType {
			d.BlockOffsets = d.BlockOffsets[:i]
			if i+1 < minBlocks {
				return nil, InvalidROM
			}
			d.Raw[d.UsedSpace-1] = 0
			d.UsedSpace = gapStart
			break
		}

		if i == 0 {
			signature := string(d.Raw[d.UsedSpace+1 : d.UsedSpace+1+len(fdsconst.DiskInfoSignature)])
			if signature != fdsconst.DiskInfoSignature {
				return nil, InvalidROM
			}
		}

		sum := crc.FDS(d.Raw[d.UsedSpace : d.UsedSpace+blockSize])
		d.UsedSpace += blockSize
		binary.LittleEndian.PutUint16(d.Raw[d.UsedSpace:d.UsedSpace+2], sum)
		d.UsedSpace += 2
	}

	return d, nil
}

// Save re-verifies every block's CRC, applies the configured backup
// policy, and writes the side back into its .fds file at the right side
// offset. Mirrors fds_save.
func Save(d *image.DiskSide, policy settings.BackupPolicy) error {
	if !d.Changed {
		return nil
	}
	if d.Readonly {
		return ReadOnly
	}

	if bad := d.VerifyAllCRCs(); bad != -1 {
		return WrongCRC
	}

	targetFilename := d.Filename
	if policy == settings.BackupRewriteBackup || policy == settings.BackupEverdrive {
		altFilename, err := backupPath(d.Filename, policy)
		if err != nil {
			return err
		}
		if err := ensureBackupCopy(d.Filename, altFilename, policy); err != nil {
			return err
		}
		if policy == settings.BackupEverdrive {
			targetFilename = altFilename
		}
	}

	info, err := os.Stat(targetFilename)
	headerOffset := int64(0)
	if err == nil && info.Size()%fdsconst.RomSideSize == fdsconst.RomHeaderSize {
		headerOffset = fdsconst.RomHeaderSize
	}

	f, err := os.OpenFile(targetFilename, os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("storage: failed to open %s for writing: %w", targetFilename, err)
	}
	defer f.Close()

	if _, err := f.Seek(headerOffset+int64(d.SideIndex)*fdsconst.RomSideSize, io.SeekStart); err != nil {
		return fmt.Errorf("storage: failed to seek to side %d: %w", d.SideIndex, err)
	}

	for i := 0; i < d.BlockCount(); i++ {
		body, err := d.BlockBodySize(i)
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		gap := fdsconst.NextGapBytes
		if i == 0 {
			gap = fdsconst.FirstGapBytes
		}
		start := d.BlockOffsets[i] + gap
		if _, err := f.Write(d.Raw[start : start+body]); err != nil {
			return fmt.Errorf("storage: failed to write block %d: %w", i, err)
		}
	}

	d.Changed = false
	return nil
}

// everdriveRoot is the fixed save-tree root an EverDrive N8 cartridge
// expects; backslash separators are intentional (not filepath.Join) since
// this path layout is the one real EverDrive firmware reads back from its
// FAT volume. The path is still opened through os.Stat/os.Open, so on a
// forward-slash host it is a single relative file name.
const everdriveRoot = `EDN8\gamedata`

func backupPath(filename string, policy settings.BackupPolicy) (string, error) {
	if policy == settings.BackupRewriteBackup {
		return filename + ".bak", nil
	}
	name := filename
	if idx := strings.LastIndexByte(filename, '\\'); idx >= 0 {
		name = filename[idx+1:]
	}
	return everdriveRoot + `\` + name + `\bram.srm`, nil
}

func ensureBackupCopy(original, backup string, policy settings.BackupPolicy) error {
	if _, err := os.Stat(backup); err == nil {
		return nil
	}

	src, err := os.Open(original)
	if err != nil {
		return fmt.Errorf("storage: failed to open %s for backup: %w", original, err)
	}
	defer src.Close()

	if policy == settings.BackupEverdrive {
		info, err := src.Stat()
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		if info.Size()%fdsconst.RomSideSize == fdsconst.RomHeaderSize {
			if _, err := src.Seek(fdsconst.RomHeaderSize, io.SeekStart); err != nil {
				return fmt.Errorf("storage: %w", err)
			}
		}
	}

	dst, err := os.OpenFile(backup, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("storage: failed to create backup %s: %w", backup, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("storage: failed to copy backup contents: %w", err)
	}
	return nil
}

// Close clears a side's in-memory state, optionally saving first. Mirrors
// fds_close.
func Close(d *image.DiskSide, save bool, policy settings.BackupPolicy) error {
	if save {
		if err := Save(d, policy); err != nil {
			return err
		}
	}
	d.UsedSpace = 0
	d.BlockOffsets = nil
	d.Changed = false
	return nil
}
