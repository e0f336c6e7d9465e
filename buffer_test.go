// SPDX-License-Identifier: MIT
// Copyright (c) 2026 WoozyMasta
// Source: github.com/woozymasta/pbo

package gfs

import "testing"

func TestWriteBufferReadBufferRoundTrip(t *testing.T) {
	t.Parallel()

	w := NewWriteBuffer()
	if err := w.WriteUint8(7); err != nil {
		t.Fatalf("WriteUint8: %v", err)
	}
	if err := w.WriteBool(true); err != nil {
		t.Fatalf("WriteBool: %v", err)
	}
	if err := w.WriteUint32(123456); err != nil {
		t.Fatalf("WriteUint32: %v", err)
	}
	if err := w.WriteUint64(98765432100); err != nil {
		t.Fatalf("WriteUint64: %v", err)
	}
	if err := w.WriteFloat32(3.1415); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}
	if err := w.WriteString("hello, streamable"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}

	r := NewReadBuffer(w.Bytes())

	gotU8, err := r.ReadUint8()
	if err != nil || gotU8 != 7 {
		t.Fatalf("ReadUint8 = %d, %v, want 7, nil", gotU8, err)
	}

	gotBool, err := r.ReadBool()
	if err != nil || !gotBool {
		t.Fatalf("ReadBool = %v, %v, want true, nil", gotBool, err)
	}

	gotU32, err := r.ReadUint32()
	if err != nil || gotU32 != 123456 {
		t.Fatalf("ReadUint32 = %d, %v, want 123456, nil", gotU32, err)
	}

	gotU64, err := r.ReadUint64()
	if err != nil || gotU64 != 98765432100 {
		t.Fatalf("ReadUint64 = %d, %v, want 98765432100, nil", gotU64, err)
	}

	gotF32, err := r.ReadFloat32()
	if err != nil || gotF32 != float32(3.1415) {
		t.Fatalf("ReadFloat32 = %v, %v, want 3.1415, nil", gotF32, err)
	}

	gotStr, err := r.ReadString()
	if err != nil || gotStr != "hello, streamable" {
		t.Fatalf("ReadString = %q, %v, want %q, nil", gotStr, err, "hello, streamable")
	}

	if r.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", r.Remaining())
	}
}

func TestReadBufferShortReadIsFormatError(t *testing.T) {
	t.Parallel()

	r := NewReadBuffer([]byte{1, 2})
	if _, err := r.ReadUint32(); err == nil {
		t.Fatal("ReadUint32 on 2-byte buffer: want error, got nil")
	}
}

func TestWriteBufferGrowsPastInitialCapacity(t *testing.T) {
	t.Parallel()

	w := NewWriteBuffer()
	payload := make([]byte, 10000)
	for i := range payload {
		payload[i] = byte(i)
	}

	if err := w.WriteBytes(payload); err != nil {
		t.Fatalf("WriteBytes: %v", err)
	}

	if w.Len() != len(payload) {
		t.Fatalf("Len() = %d, want %d", w.Len(), len(payload))
	}

	for i, b := range w.Bytes() {
		if b != payload[i] {
			t.Fatalf("byte %d = %d, want %d", i, b, payload[i])
		}
	}
}
