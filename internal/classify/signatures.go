package classify

import (
	"bytes"
	"encoding/binary"

	"github.com/gabriel-vasile/mimetype"
)

// Signature is a magic number identifying a binary format
type Signature struct {
	Offset int
	Magic  []byte
	Label  string
	// Check, when set, must also accept data for the signature to match
	Check func(data []byte) bool
}

// Matches reports whether data carries the signature at its offset
func (s Signature) Matches(data []byte) bool {
	end := s.Offset + len(s.Magic)
	if len(data) < end {
		return false
	}
	if !bytes.Equal(data[s.Offset:end], s.Magic) {
		return false
	}
	return s.Check == nil || s.Check(data)
}

// hasPEHeader follows e_lfanew in an MZ stub and requires "PE\0\0" there.
// A bare "MZ" prefix shows up in plain text too often to count on its own.
func hasPEHeader(data []byte) bool {
	const lfanewOffset = 0x3C
	if len(data) < lfanewOffset+4 {
		return false
	}
	peOffset := int64(binary.LittleEndian.Uint32(data[lfanewOffset:]))
	if peOffset < lfanewOffset+4 || peOffset+4 > int64(len(data)) {
		return false
	}
	return bytes.Equal(data[peOffset:peOffset+4], []byte{'P', 'E', 0x00, 0x00})
}

// Signatures is the process-wide table of known binary formats, checked in order.
var Signatures = []Signature{
	// Images
	{Magic: []byte{0xFF, 0xD8, 0xFF}, Label: "jpeg"},
	{Magic: []byte{0x89, 'P', 'N', 'G'}, Label: "png"},
	{Magic: []byte("GIF8"), Label: "gif"},
	{Magic: []byte{'I', 'I', 0x2A, 0x00}, Label: "tiff-le"},
	{Magic: []byte{'M', 'M', 0x00, 0x2A}, Label: "tiff-be"},
	{Magic: []byte("RIFF"), Label: "riff"}, // webp, wav, avi
	{Magic: []byte{0x00, 0x00, 0x01, 0x00}, Label: "ico"},
	{Magic: []byte{0x00, 0x00, 0x02, 0x00}, Label: "cur"},

	// Archives and compression
	{Magic: []byte{'P', 'K', 0x03, 0x04}, Label: "zip"},
	{Magic: []byte{'P', 'K', 0x05, 0x06}, Label: "zip-empty"},
	{Magic: []byte{'P', 'K', 0x07, 0x08}, Label: "zip-spanned"},
	{Magic: []byte("Rar!"), Label: "rar"},
	{Magic: []byte{'7', 'z', 0xBC, 0xAF}, Label: "7z"},
	{Magic: []byte{0x1F, 0x8B}, Label: "gzip"},
	{Magic: []byte("BZh"), Label: "bzip2"},
	{Magic: []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}, Label: "xz"},
	{Magic: []byte{0x28, 0xB5, 0x2F, 0xFD}, Label: "zstd"},
	{Offset: 257, Magic: []byte("ustar"), Label: "tar"},

	// Audio
	{Magic: []byte("ID3"), Label: "mp3-id3"},
	{Magic: []byte{0xFF, 0xFB}, Label: "mp3"},
	{Magic: []byte{0xFF, 0xF3}, Label: "mp3-mpeg2"},
	{Magic: []byte("fLaC"), Label: "flac"},
	{Magic: []byte("OggS"), Label: "ogg"},

	// Video
	{Offset: 4, Magic: []byte("ftyp"), Label: "mp4"},
	{Magic: []byte{0x1A, 0x45, 0xDF, 0xA3}, Label: "matroska"}, // mkv, webm
	{Magic: []byte{'F', 'L', 'V', 0x01}, Label: "flv"},

	// Documents
	{Magic: []byte("%PDF"), Label: "pdf"},
	{Magic: []byte{0xD0, 0xCF, 0x11, 0xE0}, Label: "ole2"}, // doc, xls, ppt
	{Magic: []byte(`{\rtf1`), Label: "rtf"},

	// Executables
	{Magic: []byte("MZ"), Label: "pe", Check: hasPEHeader},
	{Magic: []byte{0x7F, 'E', 'L', 'F'}, Label: "elf"},
	{Magic: []byte{0xFE, 0xED, 0xFA, 0xCE}, Label: "macho-32"},
	{Magic: []byte{0xFE, 0xED, 0xFA, 0xCF}, Label: "macho-64"},
	{Magic: []byte{0xCE, 0xFA, 0xED, 0xFE}, Label: "macho-32-le"},
	{Magic: []byte{0xCF, 0xFA, 0xED, 0xFE}, Label: "macho-64-le"},
	{Magic: []byte{0xCA, 0xFE, 0xBA, 0xBE}, Label: "java-class"},
	{Magic: []byte{0x00, 'a', 's', 'm'}, Label: "wasm"},
	{Magic: []byte("SQLite format 3\x00"), Label: "sqlite"},

	// Fonts
	{Magic: []byte("wOFF"), Label: "woff"},
	{Magic: []byte("wOF2"), Label: "woff2"},
	{Magic: []byte("OTTO"), Label: "otf"},
	{Magic: []byte{0x00, 0x01, 0x00, 0x00, 0x00}, Label: "ttf"},

	// Crypto material
	{Magic: []byte{0x30, 0x82}, Label: "der"},
	{Magic: []byte("-----BEGIN "), Label: "pem"},
}

// MatchSignature returns the first signature found at the start of data
func MatchSignature(data []byte) (Signature, bool) {
	if len(data) < 2 {
		return Signature{}, false
	}
	for _, sig := range Signatures {
		if sig.Matches(data) {
			return sig, true
		}
	}
	return Signature{}, false
}

// sniffBinary asks mimetype about formats the table does not list. Only a
// result on the binary deny-list counts. Anything whose parent chain reaches
// a text type (SVG under text/plain, XML dialects) or mimetype's generic
// fallback does not.
func sniffBinary(data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for mt := detected; mt != nil; mt = mt.Parent() {
		mediaType := MediaType(mt.String())
		if isTextMediaType(mediaType) {
			return "", false
		}
	}

	for mt := detected; mt != nil; mt = mt.Parent() {
		mediaType := MediaType(mt.String())
		if mediaType == "application/octet-stream" {
			return "", false
		}
		if isBinaryMediaType(mediaType) {
			return mediaType, true
		}
	}
	return "", false
}
