package capability

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Lakr233/vphone-cli/internal/testutil/testlog"
)

type fakeProvider struct {
	meta Metadata
	tags []string
}

func (f fakeProvider) Metadata() Metadata { return f.meta }
func (f fakeProvider) Load() ActionSet    { return NewActionSet(f.tags...) }
func (f fakeProvider) Available() bool    { return len(f.tags) > 0 }

func TestRegisterResolveAndDuplicate(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	p := fakeProvider{meta: Metadata{ID: "hid", Name: "Synthetic input"}, tags: []string{"hid_key"}}

	if err := r.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(p); !errors.Is(err, ErrProviderExists) {
		t.Fatalf("expected ErrProviderExists, got %v", err)
	}
	got, ok := r.Resolve("hid")
	if !ok || got.Metadata().ID != "hid" {
		t.Fatalf("resolve failed: ok=%v id=%q", ok, got.Metadata().ID)
	}
}

func TestRegisterNilProvider(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	if err := r.Register(nil); !errors.Is(err, ErrProviderNil) {
		t.Fatalf("expected ErrProviderNil, got %v", err)
	}
}

func TestResolveMissingProvider(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	_, ok := r.Resolve("location")
	if ok {
		t.Fatalf("expected missing provider to return ok=false")
	}
}

func TestSnapshotSortedAndProbed(t *testing.T) {
	testlog.Start(t)
	r := NewRegistry()
	_ = r.Register(fakeProvider{meta: Metadata{ID: "location", Name: "Location"}})
	_ = r.Register(fakeProvider{meta: Metadata{ID: "devmode", Name: "DevMode"}, tags: []string{"devmode_arm", "devmode_status"}})
	_ = r.Register(fakeProvider{meta: Metadata{ID: "hid", Name: "HID"}, tags: []string{"hid_key"}})

	list := r.Snapshot()
	ids := []string{list[0].ID, list[1].ID, list[2].ID}
	want := []string{"devmode", "hid", "location"}
	if !reflect.DeepEqual(ids, want) {
		t.Fatalf("snapshot not sorted: got=%v want=%v", ids, want)
	}
	if !list[0].Available || list[0].Actions[0] != "devmode_arm" {
		t.Fatalf("devmode status wrong: %+v", list[0])
	}
	if list[2].Available || len(list[2].Actions) != 0 {
		t.Fatalf("empty probe should report unavailable: %+v", list[2])
	}
}

func TestValidateMetadataFailures(t *testing.T) {
	testlog.Start(t)
	cases := []Metadata{
		{ID: "", Name: "HID"},
		{ID: "hid", Name: ""},
		{ID: "HID", Name: "HID"},
		{ID: "hid.input", Name: "HID"},
		{ID: "hid input", Name: "HID"},
	}
	for _, meta := range cases {
		if err := ValidateMetadata(meta); !errors.Is(err, ErrInvalidMetadata) {
			t.Fatalf("expected ErrInvalidMetadata for meta=%+v, got %v", meta, err)
		}
	}
}

func TestActionSetMembership(t *testing.T) {
	testlog.Start(t)
	set := NewActionSet("unlock", "hid_key", "hid_press")
	if !set.Has("unlock") || set.Has("reboot") {
		t.Fatalf("membership wrong: %v", set.Tags())
	}
	if set.Empty() {
		t.Fatalf("set with tags reported empty")
	}
	want := []string{"hid_key", "hid_press", "unlock"}
	if !reflect.DeepEqual(set.Tags(), want) {
		t.Fatalf("tags not sorted: got=%v want=%v", set.Tags(), want)
	}
}
