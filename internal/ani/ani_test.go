package ani

import "testing"

func TestBlockViewOffsetsIntoBuffer(t *testing.T) {
	data := []byte{0, 0, 0, 0, 42, 43, 44}
	r := New(data)
	v := r.BlockView(4)
	got, err := v.U8(0)
	if err != nil || got != 42 {
		t.Errorf("BlockView(4).U8(0) = (%d, %v), want (42, nil)", got, err)
	}
}

func TestBlockViewOutOfRangeOffsetIsEmpty(t *testing.T) {
	r := New([]byte{1, 2, 3})
	v := r.BlockView(100)
	if _, err := v.U8(0); err == nil {
		t.Error("BlockView(100).U8(0) error = nil, want out-of-range error")
	}
}
