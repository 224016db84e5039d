package session

// DefaultBufferCap is the number of output lines retained per session.
const DefaultBufferCap = 1000

// ringBuffer is a fixed-capacity circular buffer of output lines.
// Append is O(1); at capacity the oldest line is evicted. Not safe for
// concurrent use; the Registry's lock guards it.
type ringBuffer struct {
	lines []string
	head  int // index of the oldest line
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferCap
	}
	return &ringBuffer{lines: make([]string, capacity)}
}

// Append adds a line, evicting the oldest when full.
func (b *ringBuffer) Append(line string) {
	if b.count < len(b.lines) {
		b.lines[(b.head+b.count)%len(b.lines)] = line
		b.count++
		return
	}
	// Full: overwrite the oldest slot and advance head
	b.lines[b.head] = line
	b.head = (b.head + 1) % len(b.lines)
}

// Snapshot returns the buffered lines oldest-first as an independent
// copy; mutations by the caller never affect the buffer.
func (b *ringBuffer) Snapshot() []string {
	out := make([]string, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.lines[(b.head+i)%len(b.lines)]
	}
	return out
}

// Clear empties the buffer, retaining capacity.
func (b *ringBuffer) Clear() {
	b.head = 0
	b.count = 0
}

// Len returns the number of buffered lines.
func (b *ringBuffer) Len() int {
	return b.count
}
