package record

import (
	"fmt"
	"strings"

	"github.com/gordonklaus/portaudio"
)

// PortAudioDevice opens the system microphone through PortAudio. Name
// selects an input device by case-insensitive substring; empty means the
// default input.
type PortAudioDevice struct {
	Name string
}

func (d PortAudioDevice) Open(sampleRate, channels int) (Stream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}

	in := make([]int16, chunkFrames*channels)
	var (
		stream *portaudio.Stream
		err    error
	)
	if d.Name == "" {
		stream, err = portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), chunkFrames, in)
	} else {
		var dev *portaudio.DeviceInfo
		dev, err = findInput(d.Name)
		if err == nil {
			params := portaudio.LowLatencyParameters(dev, nil)
			params.Input.Channels = channels
			params.SampleRate = float64(sampleRate)
			params.FramesPerBuffer = chunkFrames
			stream, err = portaudio.OpenStream(params, in)
		}
	}
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("open stream failed: %w", err)
	}
	return &paStream{stream: stream, in: in}, nil
}

type paStream struct {
	stream  *portaudio.Stream
	in      []int16
	started bool
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return err
	}
	s.started = true
	return nil
}

func (s *paStream) Read(dst []int16) (int, error) {
	if err := s.stream.Read(); err != nil {
		return 0, err
	}
	return copy(dst, s.in), nil
}

func (s *paStream) Close() error {
	if s.started {
		_ = s.stream.Stop()
	}
	err := s.stream.Close()
	_ = portaudio.Terminate()
	return err
}

// DeviceInfo describes an input device.
type DeviceInfo struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	DefaultSampleRate float64
	Default           bool
}

// ListDevices returns the input devices PortAudio can see.
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	def, _ := portaudio.DefaultInputDevice()

	var out []DeviceInfo
	for i, d := range devices {
		if d.MaxInputChannels <= 0 {
			continue
		}
		info := DeviceInfo{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
			Default:           def != nil && def.Name == d.Name && def.HostApi == d.HostApi,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		out = append(out, info)
	}
	return out, nil
}

func findInput(name string) (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}
	want := strings.ToLower(name)
	for _, d := range devices {
		if d.MaxInputChannels > 0 && strings.Contains(strings.ToLower(d.Name), want) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("no input device matching %q", name)
}
