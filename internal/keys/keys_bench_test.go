package keys

import "testing"

func BenchmarkFor(b *testing.B) {
	b.ReportAllocs()
	var sink Space
	for i := 0; i < b.N; i++ {
		sink = For("tasks")
	}
	_ = sink
}

func BenchmarkBuilders(b *testing.B) {
	s := For("tasks")
	cases := []struct {
		name string
		fn   func(string) string
	}{
		{"Task", s.Task},
		{"Status", s.Status},
	}
	for _, c := range cases {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			var out string
			for i := 0; i < b.N; i++ {
				out = c.fn("TERMINAL_DISCOVERY_20250101_000000_abcd1234")
			}
			_ = out
		})
	}
}
