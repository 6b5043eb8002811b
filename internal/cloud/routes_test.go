package cloud

import (
	"errors"
	"testing"
)

func TestParseCommandKind_RoundTrip(t *testing.T) {
	for _, kind := range allKinds {
		got, err := ParseCommandKind(kind.String())
		if err != nil {
			t.Errorf("ParseCommandKind(%q) error = %v", kind.String(), err)
			continue
		}
		if got != kind {
			t.Errorf("ParseCommandKind(%q) = %v, want %v", kind.String(), got, kind)
		}
	}
}

func TestParseCommandKind_Unknown(t *testing.T) {
	if _, err := ParseCommandKind("tableMerge"); !errors.Is(err, ErrUnknownCommandType) {
		t.Errorf("ParseCommandKind(tableMerge) error = %v, want ErrUnknownCommandType", err)
	}
}

func TestRouteTableCoversAllKinds(t *testing.T) {
	for _, kind := range allKinds {
		spec, err := route(kind)
		if err != nil {
			t.Errorf("route(%v) error = %v", kind, err)
			continue
		}
		if spec.method == "" || spec.path == nil {
			t.Errorf("route(%v) has incomplete descriptor", kind)
		}
	}
}
