// Package device implements the process-wide input/output device
// registry (§4.4): enumeration over portaudio, add/remove observer
// notifications, output routing preference, and the feedback-risk
// heuristic consulted before monitoring is enabled.
package device

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// Init must be called once before any portaudio-backed call in this
// package or in capture/portaudio_stream.go (Registry.Refresh,
// OpenInputStream, OpenOutputStream all resolve to portaudio calls that
// panic/error if the host library isn't initialized first). Callers
// should defer the returned Terminate.
func Init() error {
	return portaudio.Initialize()
}

// Terminate releases the host audio library. Safe to call via defer
// right after a successful Init.
func Terminate() error {
	return portaudio.Terminate()
}

// Kind classifies a device for routing/filter decisions, per §4.4.
type Kind int

const (
	KindBuiltInMic Kind = iota
	KindBuiltInSpeaker
	KindUSB
	KindUSBHeadset
	KindUSBAccessory
	KindWiredHeadset
	KindBluetoothA2DP
	KindBluetoothLE
	KindBluetoothSCO
)

// Info describes one enumerated device, per §4.4 "{id, kind,
// display_name}".
type Info struct {
	ID          string
	Kind        Kind
	DisplayName string
	MaxInputs   int
	MaxOutputs  int
}

// IsExternalInput reports whether kind counts as an "external input
// device" per §4.4 (USB/USB-headset/USB-accessory/wired headset;
// anything else implies the built-in mic).
func (i Info) IsExternalInput() bool {
	switch i.Kind {
	case KindUSB, KindUSBHeadset, KindUSBAccessory, KindWiredHeadset:
		return true
	default:
		return false
	}
}

// outputPriority ranks kinds for monitor routing, per §4.4: Bluetooth
// A2DP/LE > Bluetooth SCO > wired headset > built-in speaker. Lower is
// more preferred. Kinds that cannot serve as output are absent and
// treated as unranked by rank().
var outputPriority = map[Kind]int{
	KindBluetoothA2DP:  0,
	KindBluetoothLE:    0,
	KindBluetoothSCO:   1,
	KindWiredHeadset:   2,
	KindBuiltInSpeaker: 3,
}

func rank(k Kind) (int, bool) {
	r, ok := outputPriority[k]
	return r, ok
}

// Observer receives add/remove notifications from a Registry. Observers
// are weak: the registry holds no strong reference that would keep a
// session alive, per §3 "Ownership".
type Observer func(added bool, info Info)

// Registry enumerates portaudio devices and fans out hotplug
// notifications to subscribed observers. It is a process-wide singleton
// in intended usage, constructed once by the application context.
type Registry struct {
	mu        sync.Mutex
	observers map[int]Observer
	nextID    int
	known     map[string]Info

	logger *log.Logger
}

// NewRegistry builds an empty registry. Callers must call Refresh once
// before relying on List.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		observers: make(map[int]Observer),
		known:     make(map[string]Info),
		logger:    logger.With("component", "device.Registry"),
	}
}

// Subscribe registers an observer and returns a token for Unsubscribe.
func (r *Registry) Subscribe(obs Observer) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.observers[id] = obs
	return id
}

// Unsubscribe removes a previously registered observer.
func (r *Registry) Unsubscribe(token int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.observers, token)
}

// Refresh re-enumerates host devices via portaudio, diffs against the
// previously known set, and fires Observer callbacks for any device that
// appeared or disappeared. Safe to call from a polling loop or a udev
// event handler.
func (r *Registry) Refresh() error {
	devices, err := portaudio.Devices()
	if err != nil {
		return fmt.Errorf("device: enumerate: %w", err)
	}

	current := make(map[string]Info, len(devices))
	for _, d := range devices {
		info := Info{
			ID:          d.Name,
			Kind:        classify(d),
			DisplayName: d.Name,
			MaxInputs:   d.MaxInputChannels,
			MaxOutputs:  d.MaxOutputChannels,
		}
		current[info.ID] = info
	}

	r.mu.Lock()
	var added, removed []Info
	for id, info := range current {
		if _, ok := r.known[id]; !ok {
			added = append(added, info)
		}
	}
	for id, info := range r.known {
		if _, ok := current[id]; !ok {
			removed = append(removed, info)
		}
	}
	r.known = current
	observers := make([]Observer, 0, len(r.observers))
	for _, obs := range r.observers {
		observers = append(observers, obs)
	}
	r.mu.Unlock()

	for _, info := range added {
		r.logger.Debug("device added", "id", info.ID)
		for _, obs := range observers {
			obs(true, info)
		}
	}
	for _, info := range removed {
		r.logger.Debug("device removed", "id", info.ID)
		for _, obs := range observers {
			obs(false, info)
		}
	}
	return nil
}

// List returns the devices known as of the last Refresh, sorted by ID
// for deterministic iteration.
func (r *Registry) List() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Info, 0, len(r.known))
	for _, info := range r.known {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetByID returns the device known under id as of the last Refresh, per
// §4.4/§6 "get_input_by_id(id) -> device handle or null". The bool
// result is false when id is not currently enumerated.
func (r *Registry) GetByID(id string) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	info, ok := r.known[id]
	return info, ok
}

// classify maps a portaudio device's name heuristically onto a Kind,
// since portaudio's cross-platform API exposes no standard device-class
// field. This mirrors the name-sniffing approach used by the
// other_examples recorders to distinguish "default"/built-in devices
// from externally attached ones.
func classify(d *portaudio.DeviceInfo) Kind {
	name := strings.ToLower(d.Name)
	switch {
	case strings.Contains(name, "a2dp") || strings.Contains(name, "bluetooth a2dp"):
		return KindBluetoothA2DP
	case strings.Contains(name, "ble") || strings.Contains(name, "bluetooth le"):
		return KindBluetoothLE
	case strings.Contains(name, "sco") || strings.Contains(name, "hands-free") || strings.Contains(name, "bluetooth"):
		return KindBluetoothSCO
	case strings.Contains(name, "headset") && strings.Contains(name, "usb"):
		return KindUSBHeadset
	case strings.Contains(name, "usb accessory") || strings.Contains(name, "usb-accessory"):
		return KindUSBAccessory
	case strings.Contains(name, "usb"):
		return KindUSB
	case strings.Contains(name, "headset") || strings.Contains(name, "headphone") || strings.Contains(name, "wired"):
		return KindWiredHeadset
	case d.MaxOutputChannels > 0 && d.MaxInputChannels == 0:
		return KindBuiltInSpeaker
	default:
		return KindBuiltInMic
	}
}

// PreferredOutput selects the best monitor output device per §4.4's
// priority order, excluding the currently selected input device (to
// avoid echoing recorded audio back into itself) and any device with no
// output channels. Returns false if none qualifies.
func PreferredOutput(devices []Info, excludeInputID string) (Info, bool) {
	var best Info
	bestRank := -1
	found := false
	for _, d := range devices {
		if d.ID == excludeInputID || d.MaxOutputs == 0 {
			continue
		}
		r, ok := rank(d.Kind)
		if !ok {
			continue
		}
		if !found || r < bestRank {
			best, bestRank, found = d, r, true
		}
	}
	return best, found
}

// FeedbackRisk implements §4.4's heuristic: risk exists iff the input is
// the built-in mic and no non-speaker output is available.
func FeedbackRisk(devices []Info, inputID string) bool {
	var input Info
	inputFound := false
	for _, d := range devices {
		if d.ID == inputID {
			input, inputFound = d, true
			break
		}
	}
	if !inputFound || input.Kind != KindBuiltInMic {
		return false
	}
	for _, d := range devices {
		if d.MaxOutputs == 0 {
			continue
		}
		switch d.Kind {
		case KindBluetoothA2DP, KindBluetoothLE, KindBluetoothSCO, KindWiredHeadset:
			return false
		}
	}
	return true
}
