package algorithms

import "testing"

func TestEccentricity(t *testing.T) {
	// 0-1-2-3 plus an isolated 4.
	g := undirected(5, [2]int{0, 1}, [2]int{1, 2}, [2]int{2, 3})

	tests := []struct {
		source      int
		wantEcc     int
		wantReached int
	}{
		{0, 3, 4},
		{1, 2, 4},
		{3, 3, 4},
		{4, 0, 1},
	}

	for _, tt := range tests {
		ecc, reached := Eccentricity(g, tt.source)
		if ecc != tt.wantEcc || reached != tt.wantReached {
			t.Errorf("Eccentricity(%d) = (%d, %d), want (%d, %d)",
				tt.source, ecc, reached, tt.wantEcc, tt.wantReached)
		}
	}
}

func TestDiameterMatchesMaxEccentricity(t *testing.T) {
	// Star with one extended arm: 0 is the hub, 5 hangs off 4.
	g := undirected(6, [2]int{0, 1}, [2]int{0, 2}, [2]int{0, 3}, [2]int{0, 4}, [2]int{4, 5})

	want := 0
	for i := 0; i < g.Order(); i++ {
		if ecc, _ := Eccentricity(g, i); ecc > want {
			want = ecc
		}
	}

	for _, workers := range []int{1, 3, 16} {
		got, ok, err := Diameter(g, workers)
		if err != nil || !ok {
			t.Fatalf("Diameter(workers=%d) = (%d, %v, %v)", workers, got, ok, err)
		}
		if got != want {
			t.Errorf("Diameter(workers=%d) = %d, want %d", workers, got, want)
		}
	}
}
