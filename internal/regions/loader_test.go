package regions

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/korean"

	"living-population/internal/models"
)

func TestEmbedded(t *testing.T) {
	l, err := Embedded()
	if err != nil {
		t.Fatalf("Embedded() error = %v", err)
	}
	if l.Len() == 0 {
		t.Fatal("embedded table is empty")
	}

	f, err := l.FilterFor("성동구", []string{"왕십리도선동"})
	if err != nil {
		t.Fatalf("FilterFor() error = %v", err)
	}
	if !f.Matches("1104065001") || f.Matches("1104066001") {
		t.Errorf("filter %v does not select 1104065 only", f)
	}
}

func TestParseTSV_BOMAndExtraColumns(t *testing.T) {
	content := "\uFEFF시도코드\t통계청행정동코드\t시도명\t시군구명\t행정동명\n" +
		"11\t11010530\t서울특별시\t종로구\t사직동\n" +
		"\n" +
		"11\t11040650\t서울특별시\t성동구\t왕십리도선동\n"

	entries, err := ParseTSV("regions.tsv", []byte(content))
	if err != nil {
		t.Fatalf("ParseTSV() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[1].AdminCode != "11040650" || entries[1].District != "성동구" {
		t.Errorf("entries[1] = %+v", entries[1])
	}
}

func TestLoadFile_CP949(t *testing.T) {
	text := "통계청행정동코드\t시도명\t시군구명\t행정동명\n11010530\t서울특별시\t종로구\t사직동\n"
	content, err := korean.EUCKR.NewEncoder().Bytes([]byte(text))
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "regions.tsv")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	l, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if e, ok := l.Entry("1101053"); !ok || e.SubDistrict != "사직동" {
		t.Errorf("Entry(1101053) = %+v, %v", e, ok)
	}
}

func TestParseTSV_MissingColumns(t *testing.T) {
	_, err := ParseTSV("bad.tsv", []byte("통계청행정동코드\t시도명\n11010530\t서울특별시\n"))

	var schemaErr *models.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("error = %v, want *models.SchemaError", err)
	}
	if len(schemaErr.Missing) != 2 {
		t.Errorf("Missing = %v, want 시군구명 and 행정동명", schemaErr.Missing)
	}
}
