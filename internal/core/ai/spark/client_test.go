package spark_test

import (
	"testing"

	"github.com/sooogooo/ebooks-chemicalpeel/internal/core/ai/spark"
)

func TestWireModel(t *testing.T) {
	cases := map[string]string{
		"spark-lite": "lite",
		"spark-pro":  "generalv3",
		"spark-max":  "generalv3.5",
		"4.0Ultra":   "4.0Ultra",
	}
	for model, want := range cases {
		if got := spark.WireModel(model); got != want {
			t.Errorf("WireModel(%q) = %q, want %q", model, got, want)
		}
	}
}

func TestModelsHaveWireNames(t *testing.T) {
	for _, m := range spark.Models {
		if spark.WireModel(m) == m {
			t.Errorf("catalog model %q has no wire mapping", m)
		}
	}
}
