package common

import "testing"

func TestAccuracy(t *testing.T) {
	predicted := []string{"<=50K", ">50K", "<=50K", "<=50K"}
	actual := []string{"<=50K", ">50K", ">50K", "<=50K"}

	accuracy, err := Accuracy(predicted, actual)
	if err != nil {
		t.Fatalf("Error computing accuracy: %s", err)
	}
	if accuracy != 0.75 {
		t.Errorf("Expected accuracy 0.75, got %f", accuracy)
	}
}

func TestAccuracyTrimsWhitespace(t *testing.T) {
	// The census dataset ships its cells with a leading space
	accuracy, err := Accuracy([]string{"<=50K"}, []string{" <=50K"})
	if err != nil {
		t.Fatalf("Error computing accuracy: %s", err)
	}
	if accuracy != 1 {
		t.Errorf("Expected accuracy 1, got %f", accuracy)
	}
}

func TestAccuracyLengthMismatch(t *testing.T) {
	if _, err := Accuracy([]string{"<=50K"}, []string{"<=50K", ">50K"}); err == nil {
		t.Errorf("Expected an error on label columns of different lengths")
	}
}

func TestAccuracyEmpty(t *testing.T) {
	if _, err := Accuracy([]string{}, []string{}); err == nil {
		t.Errorf("Expected an error on empty label columns")
	}
}

func TestComputePerf(t *testing.T) {
	predicted := []string{"<=50K", "<=50K", "<=50K", "<=50K"}
	actual := []string{"<=50K", "<=50K", ">50K", ">50K"}

	perf, err := ComputePerf(predicted, actual)
	if err != nil {
		t.Fatalf("Error computing perf: %s", err)
	}
	if perf.Accuracy != 0.5 {
		t.Errorf("Expected accuracy 0.5, got %f", perf.Accuracy)
	}

	// A constant classifier recalls everything on its label, nothing on the other
	if perf.PerLabel["<=50K"] != 1 {
		t.Errorf("Expected recall 1 on <=50K, got %f", perf.PerLabel["<=50K"])
	}
	if perf.PerLabel[">50K"] != 0 {
		t.Errorf("Expected recall 0 on >50K, got %f", perf.PerLabel[">50K"])
	}
}
