package prismlate_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ZaguanLabs/prismlate"
	"github.com/ZaguanLabs/prismlate/cache"
	"github.com/ZaguanLabs/prismlate/dom"
	"github.com/ZaguanLabs/prismlate/provider"
)

// Benchmarks for performance validation

func BenchmarkHashText(b *testing.B) {
	text := "Hello World, this is a sample text for hashing"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prismlate.HashText(text)
	}
}

func BenchmarkRewriteLocalePaths(b *testing.B) {
	text := `<p>See <a href="/en-us/pricing">pricing</a> and <a href="/en-us/contact">contact</a>.</p>`
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prismlate.RewriteLocalePaths(text, "ja")
	}
}

func BenchmarkSplitLargeText(b *testing.B) {
	text := strings.Repeat("A paragraph of body copy for the article.\n\n", 300)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		prismlate.SplitLargeText(text, prismlate.DefaultCharLimit)
	}
}

func BenchmarkLocate(b *testing.B) {
	doc, err := dom.ParseString(articlePage)
	if err != nil {
		b.Fatal(err)
	}
	runner := prismlate.NewRunner("es", provider.NewMockProvider())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		runner.Locate(doc)
	}
}

func BenchmarkRunner_Translate_Cached(b *testing.B) {
	p := provider.NewMockProvider()
	runner := prismlate.NewRunner("es", p,
		prismlate.WithCache(cache.NewInMemoryCache(time.Hour, 0)),
	)

	// Prime the cache
	doc, _ := dom.ParseString(articlePage)
	runner.Translate(context.Background(), nil, doc, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc, _ := dom.ParseString(articlePage)
		runner.Translate(context.Background(), nil, doc, nil)
	}
}
