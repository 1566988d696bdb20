package uid

import "testing"

func TestGeneratorUnique(t *testing.T) {
	g := New("X")
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := g.Next()
		if seen[id] {
			t.Fatalf("duplicate id %q at iteration %d", id, i)
		}
		seen[id] = true
		if id[0] != 'X' {
			t.Fatalf("id %q missing prefix", id)
		}
	}
}

func TestBatchGeneratorUnique(t *testing.T) {
	bg := NewBatch("Y", 8)
	b := bg.NewBatch()
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := b.Next()
		if seen[id] {
			t.Fatalf("duplicate id %q at iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestBatchGeneratorConcurrent(t *testing.T) {
	bg := NewBatch("Z", 16)
	const goroutines = 20
	const perGoroutine = 200

	results := make(chan string, goroutines*perGoroutine)
	done := make(chan struct{})
	for g := 0; g < goroutines; g++ {
		go func() {
			b := bg.NewBatch()
			for i := 0; i < perGoroutine; i++ {
				results <- b.Next()
			}
			done <- struct{}{}
		}()
	}
	for g := 0; g < goroutines; g++ {
		<-done
	}
	close(results)

	seen := make(map[string]bool)
	for id := range results {
		if seen[id] {
			t.Fatalf("duplicate id %q across goroutines", id)
		}
		seen[id] = true
	}
}
