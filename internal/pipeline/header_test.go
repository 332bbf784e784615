package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"living-population/internal/models"
)

func TestCleanHeader(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"기준일ID", "기준일ID"},
		{"  시간대구분 ", "시간대구분"},
		{`"집계구코드"`, "집계구코드"},
		{"?총생활인구수", "총생활인구수"},
		{"\uFEFF기준일ID", "기준일ID"},
		{`" 중국인체류인구수?"`, " 중국인체류인구수"},
	}

	for _, tt := range tests {
		if got := CleanHeader(tt.in); got != tt.want {
			t.Errorf("CleanHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateHeader(t *testing.T) {
	full := models.ForeignShape.Required()

	idx, err := ValidateHeader("ok.csv", append([]string{"extra"}, full...), models.ForeignShape)
	if err != nil {
		t.Fatalf("ValidateHeader() error = %v", err)
	}
	if idx.date != 1 || idx.code != 3 {
		t.Errorf("index = %+v, want date=1 code=3", idx)
	}
	if !reflect.DeepEqual(idx.measures, [][]int{{4}, {5}, {6}}) {
		t.Errorf("measures = %v", idx.measures)
	}

	partial := []string{"기준일ID", "시간대구분", "집계구코드", "총생활인구수", "중국외외국인체류인구수"}
	_, err = ValidateHeader("partial.csv", partial, models.ForeignShape)

	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want *models.SchemaError", err)
	}
	if schemaErr.Filename != "partial.csv" {
		t.Errorf("Filename = %q, want partial.csv", schemaErr.Filename)
	}
	if !reflect.DeepEqual(schemaErr.Missing, []string{"중국인체류인구수"}) {
		t.Errorf("Missing = %v, want [중국인체류인구수]", schemaErr.Missing)
	}
}

func TestDetectShape(t *testing.T) {
	if s := DetectShape(models.ForeignShape.Required(), models.Shapes); s != models.ForeignShape {
		t.Errorf("DetectShape(foreign header) = %v, want foreign", s)
	}
	if s := DetectShape(models.DomesticShape.Required(), models.Shapes); s != models.DomesticShape {
		t.Errorf("DetectShape(domestic header) = %v, want domestic", s)
	}
	if s := DetectShape([]string{"a", "b"}, models.Shapes); s != nil {
		t.Errorf("DetectShape(unknown) = %v, want nil", s)
	}
}
