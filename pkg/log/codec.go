package log

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// A protocol log is a CBOR sequence: events are written back to back with no
// framing, so appending to an existing file needs no rewrite.
type eventCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var codec = newEventCodec()

func newEventCodec() eventCodec {
	enc, err := cbor.EncOptions{
		Sort:          cbor.SortCoreDeterministic,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor encoder mode: %v", err))
	}

	dec, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthAllowed,
		MaxNestedLevels: 16,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor decoder mode: %v", err))
	}
	return eventCodec{enc: enc, dec: dec}
}

// EncodeEvent encodes one event.
func EncodeEvent(event Event) ([]byte, error) {
	return codec.enc.Marshal(event)
}

// DecodeEvent decodes one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := codec.dec.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}
