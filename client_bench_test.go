package supplyq_test

import (
	"context"
	"testing"

	"github.com/supplymap/supplyq"
)

func BenchmarkClient_Enqueue(b *testing.B) {
	st, _ := newMiniStore(b)
	c := supplyq.NewClient(st)
	ctx := context.Background()
	params := map[string]any{"railroads": []string{"UP", "BNSF"}}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.Enqueue(ctx, "rail_rate", "bench", supplyq.Params(params)); err != nil {
			b.Fatal(err)
		}
	}
}
