package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUpsertDevice_CreateAndOverwrite(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	dev := &Device{
		DeviceID:   "pos-1",
		DeviceName: "Front Counter",
		DeviceType: "pos",
		IPAddress:  strPtr("192.168.1.20"),
	}
	if err := st.UpsertDevice(ctx, dev); err != nil {
		t.Fatalf("UpsertDevice() error = %v", err)
	}

	// Re-registration overwrites name and address.
	dev2 := &Device{
		DeviceID:   "pos-1",
		DeviceName: "Front Counter 1",
		DeviceType: "pos",
		IPAddress:  strPtr("192.168.1.25"),
	}
	if err := st.UpsertDevice(ctx, dev2); err != nil {
		t.Fatalf("UpsertDevice() overwrite error = %v", err)
	}

	got, err := st.GetDevice(ctx, "pos-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.DeviceName != "Front Counter 1" {
		t.Errorf("DeviceName = %q, want %q", got.DeviceName, "Front Counter 1")
	}
	if got.IPAddress == nil || *got.IPAddress != "192.168.1.25" {
		t.Errorf("IPAddress = %v, want 192.168.1.25", got.IPAddress)
	}
}

func TestUpsertDevice_PairedIsSticky(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if err := st.UpsertDevice(ctx, &Device{DeviceID: "kds-1", DeviceName: "Pass", DeviceType: "kds", Paired: true}); err != nil {
		t.Fatalf("UpsertDevice() error = %v", err)
	}
	// A later registration without a pairing code must not unpair.
	if err := st.UpsertDevice(ctx, &Device{DeviceID: "kds-1", DeviceName: "Pass", DeviceType: "kds", Paired: false}); err != nil {
		t.Fatalf("UpsertDevice() error = %v", err)
	}

	got, err := st.GetDevice(ctx, "kds-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if !got.Paired {
		t.Error("Paired = false, want pairing to stick")
	}
}

func TestUpdateDeviceLastSeen(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	if err := st.UpsertDevice(ctx, &Device{DeviceID: "pos-1", DeviceName: "Till", DeviceType: "pos"}); err != nil {
		t.Fatalf("UpsertDevice() error = %v", err)
	}

	seenAt := time.Now().Add(time.Minute)
	if err := st.UpdateDeviceLastSeen(ctx, "pos-1", seenAt); err != nil {
		t.Fatalf("UpdateDeviceLastSeen() error = %v", err)
	}

	got, err := st.GetDevice(ctx, "pos-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if !got.LastSeen.Equal(seenAt) {
		t.Errorf("LastSeen = %v, want %v", got.LastSeen, seenAt)
	}

	if err := st.UpdateDeviceLastSeen(ctx, "ghost", time.Now()); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("UpdateDeviceLastSeen(ghost) error = %v, want ErrDeviceNotFound", err)
	}
}

func TestDeviceOnline(t *testing.T) {
	d := &Device{LastSeen: time.Now().Add(-30 * time.Second)}
	if !d.Online(time.Minute) {
		t.Error("Online(1m) = false for device seen 30s ago")
	}
	if d.Online(10 * time.Second) {
		t.Error("Online(10s) = true for device seen 30s ago")
	}
}

func TestListDevices(t *testing.T) {
	st := setupTestStore(t)
	ctx := context.Background()

	for _, d := range []Device{
		{DeviceID: "kds-1", DeviceName: "Grill KDS", DeviceType: "kds"},
		{DeviceID: "pos-1", DeviceName: "Bar Till", DeviceType: "pos"},
	} {
		if err := st.UpsertDevice(ctx, &d); err != nil {
			t.Fatalf("UpsertDevice(%s) error = %v", d.DeviceID, err)
		}
	}

	devices, err := st.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("len(devices) = %d, want 2", len(devices))
	}
	// Ordered by name.
	if devices[0].DeviceID != "pos-1" || devices[1].DeviceID != "kds-1" {
		t.Errorf("order = [%s, %s], want [pos-1, kds-1]", devices[0].DeviceID, devices[1].DeviceID)
	}
}
