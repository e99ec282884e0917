// Package link is the remote configuration channel: a GATT-style peripheral
// carried over a websocket. A single central connects, reads and writes the
// scalar settings by characteristic UUID, and disconnects. Writes and
// connection changes are applied on the render loop goroutine inside Poll.
package link

import (
	"errors"

	"github.com/google/uuid"

	"github.com/coreman2200/xmaslights/internal/settings"
)

// DefaultLocalName is the advertised device name.
const DefaultLocalName = "XmasLights_001"

// ServiceUUID identifies the lights service.
var ServiceUUID = uuid.MustParse("81bea2b7-ad1a-493a-bf19-123596b3328b")

// One characteristic per writable field.
var characteristics = map[settings.Field]uuid.UUID{
	settings.FieldRun:                   uuid.MustParse("3a6d65bb-ed42-4443-a23b-4225e76f10d8"),
	settings.FieldLightCount:            uuid.MustParse("a9497a4a-4735-4b50-b10c-da941ac7b51b"),
	settings.FieldStripeWidth:           uuid.MustParse("672b85ce-5175-485e-a9e2-739ebae601d9"),
	settings.FieldCarLength:             uuid.MustParse("9307a368-8d50-48dd-92e8-9f65bb15f98f"),
	settings.FieldSecondsBetweenEffects: uuid.MustParse("f0d754d8-a042-4d39-9cec-5b2243a2de86"),
}

var (
	// ErrBusy is returned when a second central tries to connect.
	ErrBusy = errors.New("link: a central is already connected")
	// ErrUnknownCharacteristic is returned for a UUID outside the service.
	ErrUnknownCharacteristic = errors.New("link: unknown characteristic")
	// ErrNotApplied is returned when the render loop did not take a write in
	// time. The write is dropped, never applied late.
	ErrNotApplied = errors.New("link: write not applied")
)

// CharacteristicUUID returns the UUID for f.
func CharacteristicUUID(f settings.Field) uuid.UUID { return characteristics[f] }

// FieldFor resolves a characteristic UUID string.
func FieldFor(s string) (settings.Field, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return 0, errors.Join(ErrUnknownCharacteristic, err)
	}
	for f, c := range characteristics {
		if c == id {
			return f, nil
		}
	}
	return 0, ErrUnknownCharacteristic
}

// Characteristic is one advertised attribute.
type Characteristic struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Advertisement is sent to a central right after it connects.
type Advertisement struct {
	Op              string           `json:"op"`
	LocalName       string           `json:"localName"`
	Service         string           `json:"service"`
	Characteristics []Characteristic `json:"characteristics"`
}

// Message is a request from the central or a reply to it.
type Message struct {
	Op    string  `json:"op"` // read, write
	UUID  string  `json:"uuid"`
	Value *uint32 `json:"value,omitempty"`
	Error string  `json:"error,omitempty"`
}

func advertisement(name string) Advertisement {
	ad := Advertisement{Op: "advertise", LocalName: name, Service: ServiceUUID.String()}
	for _, f := range settings.Fields {
		ad.Characteristics = append(ad.Characteristics, Characteristic{
			UUID: characteristics[f].String(),
			Name: f.String(),
		})
	}
	return ad
}
