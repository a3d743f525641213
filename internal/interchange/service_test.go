package interchange

import (
	"errors"
	"strings"
	"testing"

	"github.com/xelth-com/pantrysync/internal/catalog"
	"github.com/xelth-com/pantrysync/internal/models"
	"github.com/xelth-com/pantrysync/internal/storage"
)

func seededStore(t *testing.T) *catalog.Store {
	t.Helper()
	s := catalog.NewStore(nil, nil)
	s.AddToShopping("Bananas", "cat_fruit")
	milk := s.AddToShopping("Milk", "cat_dairy")
	s.SetFlag(milk.ID, models.FlagCompleted, true)
	rice, _ := s.Add("Rice", "cat_pantry")
	s.SetFlag(rice.ID, models.FlagInPantry, true)
	s.SetFlag(rice.ID, models.FlagInStock, true)
	return s
}

func TestService_ExportImportRoundTrip(t *testing.T) {
	src := seededStore(t)
	srcAdapter := storage.NewAdapter(storage.NewMemoryKV(), nil)
	srcAdapter.PutRaw(storage.KeyRecipes, []byte(`[{"name":"Pancakes"}]`))

	raw, err := NewService(src, srcAdapter, "device-a", "", nil).Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	dst := catalog.NewStore(nil, nil)
	dstAdapter := storage.NewAdapter(storage.NewMemoryKV(), nil)
	res, err := NewService(dst, dstAdapter, "device-b", "", nil).Import(raw)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 3 || res.Skipped != 0 || res.Warnings != 0 {
		t.Fatalf("unexpected result %#v", res)
	}

	want, got := src.All(), dst.All()
	if len(want) != len(got) {
		t.Fatalf("product count %d != %d", len(got), len(want))
	}
	for i := range want {
		if want[i] != got[i] {
			t.Errorf("product %d differs\n got %#v\nwant %#v", i, got[i], want[i])
		}
	}
	if string(dstAdapter.GetRaw(storage.KeyRecipes)) != `[{"name":"Pancakes"}]` {
		t.Errorf("recipes not passed through: %s", dstAdapter.GetRaw(storage.KeyRecipes))
	}

	// a second pass is a no-op
	raw2, _ := NewService(dst, dstAdapter, "device-b", "", nil).Export()
	again := catalog.NewStore(nil, nil)
	if _, err := NewService(again, nil, "device-c", "", nil).Import(raw2); err != nil {
		t.Fatalf("re-import: %v", err)
	}
	for i, p := range again.All() {
		if p != want[i] {
			t.Errorf("second round trip changed product %d", i)
		}
	}
}

func TestService_ExportShape(t *testing.T) {
	raw, err := NewService(seededStore(t), nil, "device-a", "", nil).Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"timestamp", "device", "version", "data", "statistics"} {
		if _, ok := doc[k]; !ok {
			t.Errorf("missing top-level key %s", k)
		}
	}
	stats := doc["statistics"].(map[string]interface{})
	if stats["totalProducts"] != float64(3) || stats["shoppingItems"] != float64(2) || stats["completed"] != float64(1) {
		t.Errorf("unexpected statistics %v", stats)
	}
}

func TestService_ImportRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{"no data", `{"version":"2.0"}`, "data"},
		{"no allProducts", `{"data":{"categories":[]}}`, "data.allProducts"},
		{"product without name", `{"data":{"allProducts":[{"id":"x"}]}}`, "data.allProducts[0].name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seededStore(t)
			before := s.All()

			_, err := NewService(s, nil, "d", "", nil).Import([]byte(tt.input))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(verr.Fields) == 0 || verr.Fields[0] != tt.field {
				t.Fatalf("expected field %s, got %v", tt.field, verr.Fields)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("message should name the field: %s", err)
			}

			after := s.All()
			if len(after) != len(before) {
				t.Fatal("store mutated by a rejected import")
			}
			for i := range before {
				if before[i] != after[i] {
					t.Fatal("store mutated by a rejected import")
				}
			}
		})
	}
}

func TestService_ImportInvalidJSON(t *testing.T) {
	_, err := NewService(catalog.NewStore(nil, nil), nil, "d", "", nil).Import([]byte("{not json"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestService_ImportRepairsAndDedupes(t *testing.T) {
	input := `{"data":{"allProducts":[
		{"id":"a","name":"Tea","completed":true},
		{"id":"a","name":"Tea again"},
		{"id":"b","name":"Coffee","category":""}
	]}}`
	s := catalog.NewStore(nil, nil)
	res, err := NewService(s, nil, "d", "", nil).Import([]byte(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 2 || res.Skipped != 1 {
		t.Fatalf("unexpected result %#v", res)
	}
	if tea, _ := s.Get("a"); tea.Completed {
		t.Error("completed without shopping should be repaired")
	}
	if coffee, _ := s.Get("b"); coffee.Category != models.DefaultCategory {
		t.Errorf("category not defaulted: %q", coffee.Category)
	}
}

func TestService_ImportCSV(t *testing.T) {
	s := catalog.NewStore(nil, nil)
	s.Add("Milk", "cat_dairy")

	input := "name,category,inShopping,inPantry\n" +
		"milk,cat_dairy,yes,\n" +
		"Oats,cat_pantry,false,1\n" +
		",cat_other,true,\n"
	res, err := NewService(s, nil, "d", "", nil).ImportCSV(strings.NewReader(input))
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Imported != 1 || res.Updated != 1 || res.Skipped != 1 {
		t.Fatalf("unexpected result %#v", res)
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 products, got %d", s.Len())
	}
	milk, _ := s.FindByNormalizedName("milk")
	if !milk.InShopping {
		t.Error("milk should be on the list")
	}
	oats, _ := s.FindByNormalizedName("oats")
	if oats.InShopping || !oats.InPantry || oats.Category != "cat_pantry" {
		t.Errorf("oats flags wrong: %#v", oats)
	}
}

func TestService_ImportCSVMissingColumns(t *testing.T) {
	s := catalog.NewStore(nil, nil)
	_, err := NewService(s, nil, "d", "", nil).ImportCSV(strings.NewReader("title,inShopping\nMilk,true\n"))

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if strings.Join(verr.Fields, ",") != "name,category" {
		t.Fatalf("expected both required columns named, got %v", verr.Fields)
	}
	if s.Len() != 0 {
		t.Fatal("rejected csv must not add products")
	}
}

func TestEncodeCSV_RoundTrip(t *testing.T) {
	out, err := EncodeCSV(seededStore(t).All())
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	rows, err := ParseCSV(strings.NewReader(string(out)))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rows) != 3 || rows[0].Name != "Bananas" || !rows[0].Flags()[models.FlagInShopping] {
		t.Fatalf("unexpected rows %#v", rows)
	}
}
