package vision

import (
	"strings"
	"testing"
)

// The construction paths check for model files before touching
// OpenCV, so a missing model must fail fast with a useful path.

func TestNewFaceDetectorMissingModel(t *testing.T) {
	_, err := NewFaceDetector(Config{ModelDir: t.TempDir()})
	if err == nil {
		t.Fatal("missing face model accepted")
	}
	if !strings.Contains(err.Error(), FaceModelFile) {
		t.Errorf("error %q does not name the model file", err)
	}
}

func TestNewObjectDetectorMissingModel(t *testing.T) {
	_, err := NewObjectDetector(Config{ModelDir: t.TempDir()})
	if err == nil {
		t.Fatal("missing object model accepted")
	}
	if !strings.Contains(err.Error(), ObjectModelFile) {
		t.Errorf("error %q does not name the model file", err)
	}
}

func TestNewPlateDetectorMissingCascade(t *testing.T) {
	_, err := NewPlateDetector(Config{ModelDir: t.TempDir()})
	if err == nil {
		t.Fatal("missing cascade accepted")
	}
	if !strings.Contains(err.Error(), PlateModelFile) {
		t.Errorf("error %q does not name the cascade file", err)
	}
}

func TestCOCOClassCount(t *testing.T) {
	if len(COCOClasses) != 80 {
		t.Errorf("COCO class list has %d entries, want 80", len(COCOClasses))
	}
	if COCOClasses[0] != "person" {
		t.Errorf("class 0 = %q, want person", COCOClasses[0])
	}
}

func TestAnimalAndPersonHelpers(t *testing.T) {
	if !IsAnimal("dog") || IsAnimal("chair") {
		t.Error("IsAnimal misclassifies")
	}
	if !IsPerson("person") || IsPerson("dog") {
		t.Error("IsPerson misclassifies")
	}
}
