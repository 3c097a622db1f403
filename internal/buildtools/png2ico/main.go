// Command png2ico wraps the notifier's PNG icon in a single-image ICO
// container for Windows packaging. The PNG payload is embedded verbatim,
// which every Windows version since Vista accepts for 256px-and-under
// icons.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image/png"
	"os"
)

const (
	defaultIconPNG = "internal/ui/gui/assets/notifier-icon.png"
	defaultIconICO = "notifier-icon.ico"
)

func main() {
	inPath := flag.String("in", defaultIconPNG, "input PNG path")
	outPath := flag.String("out", defaultIconICO, "output ICO path")
	flag.Parse()

	if err := run(*inPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "png2ico: %v\n", err)
		os.Exit(1)
	}
}

func run(inPath string, outPath string) error {
	pngData, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read png: %w", err)
	}

	width, height, err := pngDimensions(inPath)
	if err != nil {
		return fmt.Errorf("decode png config: %w", err)
	}
	if width <= 0 || height <= 0 || width > 256 || height > 256 {
		return fmt.Errorf("png dimensions must be 1..256, got %dx%d", width, height)
	}

	icoData := buildSingleIconICO(pngData, width, height)
	if err := os.WriteFile(outPath, icoData, 0o644); err != nil {
		return fmt.Errorf("write ico: %w", err)
	}
	return nil
}

func pngDimensions(path string) (int, int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	defer file.Close()
	cfg, err := png.DecodeConfig(file)
	if err != nil {
		return 0, 0, err
	}
	return cfg.Width, cfg.Height, nil
}

func buildSingleIconICO(pngData []byte, width int, height int) []byte {
	const (
		iconDirSize      = 6
		iconDirEntrySize = 16
	)
	total := iconDirSize + iconDirEntrySize + len(pngData)
	buf := make([]byte, total)

	// ICONDIR
	binary.LittleEndian.PutUint16(buf[0:2], 0) // reserved
	binary.LittleEndian.PutUint16(buf[2:4], 1) // image type (icon)
	binary.LittleEndian.PutUint16(buf[4:6], 1) // image count

	entry := buf[6 : 6+16]
	entry[0] = iconDimByte(width)
	entry[1] = iconDimByte(height)
	entry[2] = 0                                  // palette
	entry[3] = 0                                  // reserved
	binary.LittleEndian.PutUint16(entry[4:6], 1)  // color planes
	binary.LittleEndian.PutUint16(entry[6:8], 32) // bits per pixel
	binary.LittleEndian.PutUint32(entry[8:12], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(entry[12:16], uint32(iconDirSize+iconDirEntrySize))

	copy(buf[iconDirSize+iconDirEntrySize:], pngData)
	return buf
}

func iconDimByte(v int) byte {
	if v >= 256 {
		return 0
	}
	return byte(v)
}
