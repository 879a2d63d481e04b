// Package audio enumerates ALSA capture devices from procfs and checks that
// their PCM nodes can be opened.
package audio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Device is one ALSA capture PCM.
type Device struct {
	CardNumber   int
	CardID       string
	CardName     string
	DeviceNumber int
	DeviceName   string
	ALSADevice   string // hw:C,D
	Path         string // /dev/snd/pcmCxDyc
	Accessible   bool
	Error        string
}

// Detector lists capture devices.
type Detector interface {
	ListDevices() ([]Device, error)
}

// ProcDetector reads /proc/asound. Roots are overridable for tests.
type ProcDetector struct {
	ProcRoot string // default /proc/asound
	DevRoot  string // default /dev/snd
}

// NewDetector returns a detector for the running host.
func NewDetector() *ProcDetector {
	return &ProcDetector{ProcRoot: "/proc/asound", DevRoot: "/dev/snd"}
}

// ListDevices enumerates every PCM that has a capture stream, ordered by card
// then device.
func (d *ProcDetector) ListDevices() ([]Device, error) {
	cards, err := d.readCards()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(d.ProcRoot, "pcm"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read pcm list: %w", err)
	}
	defer f.Close()

	pcms, err := parsePCMList(f)
	if err != nil {
		return nil, err
	}

	devices := make([]Device, 0, len(pcms))
	for _, p := range pcms {
		card := cards[p.card]
		dev := Device{
			CardNumber:   p.card,
			CardID:       card.id,
			CardName:     card.name,
			DeviceNumber: p.device,
			DeviceName:   p.name,
			ALSADevice:   FormatALSADevice(p.card, p.device),
			Path:         d.pcmPath(p.card, p.device),
		}
		if err := probe(dev.Path); err != nil {
			dev.Error = err.Error()
		} else {
			dev.Accessible = true
		}
		devices = append(devices, dev)
	}

	sort.Slice(devices, func(i, j int) bool {
		if devices[i].CardNumber != devices[j].CardNumber {
			return devices[i].CardNumber < devices[j].CardNumber
		}
		return devices[i].DeviceNumber < devices[j].DeviceNumber
	})
	return devices, nil
}

// Probe checks that the capture node of an hw:C,D (or plughw:C,D) name exists
// and can be opened for reading. Other names (default, pulse) are not probed.
func (d *ProcDetector) Probe(alsaDevice string) error {
	card, dev, ok := ParseALSADevice(alsaDevice)
	if !ok {
		return nil
	}
	return probe(d.pcmPath(card, dev))
}

func (d *ProcDetector) pcmPath(card, device int) string {
	return filepath.Join(d.DevRoot, fmt.Sprintf("pcmC%dD%dc", card, device))
}

// probe opens path read-only and closes it again. The returned error keeps the
// os error so callers can use os.IsPermission and os.IsNotExist.
func probe(path string) error {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	return f.Close()
}

type cardInfo struct {
	id   string
	name string
}

// readCards parses /proc/asound/cards, whose entries look like
//
//	0 [PCH            ]: HDA-Intel - HDA Intel PCH
//	                     HDA Intel PCH at 0xf7f10000 irq 32
func (d *ProcDetector) readCards() (map[int]cardInfo, error) {
	cards := make(map[int]cardInfo)
	f, err := os.Open(filepath.Join(d.ProcRoot, "cards"))
	if err != nil {
		if os.IsNotExist(err) {
			return cards, nil
		}
		return nil, fmt.Errorf("read card list: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		open := strings.Index(line, "[")
		closeIdx := strings.Index(line, "]")
		if open <= 0 || closeIdx < open {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSpace(line[:open]))
		if err != nil {
			continue
		}
		info := cardInfo{id: strings.TrimSpace(line[open+1 : closeIdx])}
		if _, after, ok := strings.Cut(line[closeIdx:], " - "); ok {
			info.name = strings.TrimSpace(after)
		}
		cards[num] = info
	}
	return cards, scanner.Err()
}

type pcmEntry struct {
	card   int
	device int
	name   string
}

// parsePCMList reads /proc/asound/pcm lines such as
//
//	00-00: ALC892 Analog : ALC892 Analog : playback 1 : capture 1
//
// and keeps only entries with a capture stream.
func parsePCMList(r io.Reader) ([]pcmEntry, error) {
	var out []pcmEntry
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Split(scanner.Text(), ":")
		if len(fields) < 3 {
			continue
		}
		hasCapture := false
		for _, f := range fields[2:] {
			if strings.HasPrefix(strings.TrimSpace(f), "capture") {
				hasCapture = true
			}
		}
		if !hasCapture {
			continue
		}
		ids := strings.SplitN(strings.TrimSpace(fields[0]), "-", 2)
		if len(ids) != 2 {
			continue
		}
		card, err1 := strconv.Atoi(ids[0])
		dev, err2 := strconv.Atoi(ids[1])
		if err1 != nil || err2 != nil {
			continue
		}
		out = append(out, pcmEntry{card: card, device: dev, name: strings.TrimSpace(fields[1])})
	}
	return out, scanner.Err()
}

// FormatALSADevice returns the hw:C,D name of a PCM.
func FormatALSADevice(card, device int) string {
	return "hw:" + strconv.Itoa(card) + "," + strconv.Itoa(device)
}

// ParseALSADevice extracts card and device from hw:C,D or plughw:C,D.
func ParseALSADevice(name string) (card, device int, ok bool) {
	rest, found := strings.CutPrefix(name, "plughw:")
	if !found {
		rest, found = strings.CutPrefix(name, "hw:")
	}
	if !found {
		return 0, 0, false
	}
	c, d, found := strings.Cut(rest, ",")
	if !found {
		d = "0"
	}
	card, err := strconv.Atoi(c)
	if err != nil || card < 0 {
		return 0, 0, false
	}
	device, err = strconv.Atoi(d)
	if err != nil || device < 0 {
		return 0, 0, false
	}
	return card, device, true
}
