package memory

import (
	"context"
	"testing"
	"time"
)

func TestLockerSerializesSameKey(t *testing.T) {
	locker := NewLocker()

	release, err := locker.Acquire(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Acquire(ctx, "user:1"); err == nil {
		t.Fatalf("expected second acquire to time out while held")
	}

	other, err := locker.Acquire(context.Background(), "user:2")
	if err != nil {
		t.Fatalf("acquire other key: %v", err)
	}
	other()

	release()
	release() // second call is a no-op
	if locker.Held("user:1") {
		t.Fatalf("expected lock entry dropped after release")
	}

	again, err := locker.Acquire(context.Background(), "user:1")
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	again()
}
