package audio

import (
	"encoding/binary"
	"testing"
)

func TestPCMToWAVHeader(t *testing.T) {
	pcm := make([]byte, 3200) // 100ms of 16kHz mono
	wav, err := PCMToWAV(pcm, 1, 16000)
	if err != nil {
		t.Fatalf("PCMToWAV: %v", err)
	}

	if !IsWAV(wav) {
		t.Fatal("output does not start with a RIFF/WAVE header")
	}
	if len(wav) != 44+len(pcm) {
		t.Errorf("wav length = %d, want %d", len(wav), 44+len(pcm))
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 16000 {
		t.Errorf("sample rate in header = %d, want 16000", rate)
	}
	if dataSize := binary.LittleEndian.Uint32(wav[40:44]); int(dataSize) != len(pcm) {
		t.Errorf("data chunk size = %d, want %d", dataSize, len(pcm))
	}
}

func TestPCMToWAVValidation(t *testing.T) {
	tests := []struct {
		name     string
		pcm      []byte
		channels int
		rate     int
	}{
		{name: "empty", pcm: nil, channels: 1, rate: 16000},
		{name: "too many channels", pcm: make([]byte, 4), channels: 3, rate: 16000},
		{name: "zero rate", pcm: make([]byte, 4), channels: 1, rate: 0},
		{name: "odd length", pcm: make([]byte, 3), channels: 1, rate: 16000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := PCMToWAV(tt.pcm, tt.channels, tt.rate); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestULawToWAV(t *testing.T) {
	uLaw := make([]byte, 800) // 100ms at 8kHz
	wav, err := ULawToWAV(uLaw)
	if err != nil {
		t.Fatalf("ULawToWAV: %v", err)
	}
	if !IsWAV(wav) {
		t.Fatal("output is not a WAV container")
	}
	// Each u-law byte expands to one 16-bit sample.
	if dataSize := binary.LittleEndian.Uint32(wav[40:44]); int(dataSize) != len(uLaw)*2 {
		t.Errorf("data chunk size = %d, want %d", dataSize, len(uLaw)*2)
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != 8000 {
		t.Errorf("sample rate = %d, want 8000", rate)
	}
}

func TestIsWAV(t *testing.T) {
	if IsWAV([]byte("not audio at all")) {
		t.Error("arbitrary bytes reported as WAV")
	}
	if IsWAV(nil) {
		t.Error("nil reported as WAV")
	}
}
