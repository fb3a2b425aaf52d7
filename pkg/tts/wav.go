package tts

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/teslashibe/go-raspbot/pkg/audioio"
)

// decodeWAV pulls PCM16 samples out of a RIFF/WAVE container. Stereo
// clips are downmixed to mono. Only uncompressed PCM16 is supported,
// which is what synthesis servers emit.
func decodeWAV(data []byte) ([]int16, int, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, 0, errors.New("not a RIFF/WAVE file")
	}

	var sampleRate, channels int
	var pcm []byte
	sawFmt := false

	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			// Truncated chunk: take what is there.
			size = len(data) - body
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, errors.New("wav fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body:])
			channels = int(binary.LittleEndian.Uint16(data[body+2:]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4:]))
			bits := binary.LittleEndian.Uint16(data[body+14:])
			if format != 1 || bits != 16 {
				return nil, 0, fmt.Errorf("unsupported wav encoding: format %d, %d-bit", format, bits)
			}
			if channels != 1 && channels != 2 {
				return nil, 0, fmt.Errorf("unsupported wav channel count: %d", channels)
			}
			sawFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		off = body + size
		if size%2 == 1 {
			off++ // chunks are word aligned
		}
	}

	if !sawFmt || pcm == nil {
		return nil, 0, errors.New("wav missing fmt or data chunk")
	}

	samples := audioio.BytesToSamples(pcm)
	if channels == 2 {
		samples = audioio.StereoToMono(samples)
	}

	return samples, sampleRate, nil
}
