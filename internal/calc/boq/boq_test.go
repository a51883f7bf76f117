package boq

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"Civcalc/internal/calcerr"
)

func sampleRecords() []Record {
	return []Record{
		{Code: "X30.150.UPVC", Qualifier: "150 mm uPVC", Dimension: Dim("P1", "pipe", "laying", 1, 20)},
		{Code: "C10.C20", Qualifier: "Plain concrete (1:2:4)", Dimension: Dim("MH1", "manhole", "bed", 1, 2.5, 2.0, 0.15)},
		{Code: "E10", Dimension: Dim("MH1", "manhole", "pit", 1, 3.1, 2.6, 2.15)},
		{Code: "E20", Dimension: Dim("P1", "pipe", "trench", 1, 0.75, 20, 1.1)},
		{Code: "C10.C20", Qualifier: "Plain concrete (1:2:4)", Dimension: Dim("MH2", "manhole", "bed", 1, 1.9, 1.9, 0.15)},
		{Code: "C12.C20", Qualifier: "Plain concrete (1:2:4)", Dimension: Dim("MH1", "manhole", "opening", -1, 0.6, 0.6, 0.15)},
		{Code: "C12.C20", Qualifier: "Plain concrete (1:2:4)", Dimension: Dim("MH1", "manhole", "slab", 1, 1.9, 1.4, 0.15)},
		{Code: "P10", Dimension: Dim("MH1", "manhole", "walls", 1, 5, 1.85)},
		{Code: "X30.100.UPVC", Qualifier: "100 mm uPVC", Dimension: Dim("P2", "pipe", "laying", 1, 12)},
	}
}

func TestDim(t *testing.T) {
	d := Dim("MH1", "manhole", "opening", -1, 0.6, 0.5, 0.2)
	if math.Abs(d.Value+0.06) > 1e-12 {
		t.Errorf("Value = %v, want -0.06", d.Value)
	}
	if d := Dim("MH1", "manhole", "cover", 1); d.Value != 1 {
		t.Errorf("count dimension = %v, want 1", d.Value)
	}
}

func TestAggregate(t *testing.T) {
	items, err := Aggregate(DefaultCatalogue(), sampleRecords())
	if err != nil {
		t.Fatal(err)
	}

	var codes []string
	for _, it := range items {
		codes = append(codes, it.Code)
	}
	want := []string{"E10", "E20", "C10.C20", "C12.C20", "P10", "X30.100.UPVC", "X30.150.UPVC"}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}

	for _, it := range items {
		var sum float64
		for _, d := range it.Dimensions {
			sum += d.Value
		}
		if sum != it.Quantity {
			t.Errorf("%s: quantity %v != sum of dimensions %v", it.Code, it.Quantity, sum)
		}
	}

	bed := items[2]
	if len(bed.Dimensions) != 2 || bed.Dimensions[0].Source != "MH1" {
		t.Errorf("bed dimensions = %+v, want MH1 then MH2", bed.Dimensions)
	}
	if bed.Description != "Plain concrete (1:2:4) in manhole bed" || bed.Unit != "m3" || bed.Category != Concrete {
		t.Errorf("bed item = %+v", bed)
	}
	if slab := items[3]; len(slab.Dimensions) != 2 || slab.Dimensions[0].Value > 0 {
		t.Errorf("slab dimensions = %+v, want the deduction kept", slab.Dimensions)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	cat := DefaultCatalogue()
	records := sampleRecords()
	first, err := Aggregate(cat, records)
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Record(nil), records...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Aggregate(cat, shuffled)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("permutation %d changed the result", i)
		}
	}
}

func TestAggregateSplitsUnits(t *testing.T) {
	records := []Record{
		{Code: "E30", Dimension: Dim("MH1", "manhole", "planking", 1, 10, 2)},
		{Code: "E30", Unit: "m", Dimension: Dim("P1", "pipe", "planking", 1, 20)},
	}
	items, err := Aggregate(DefaultCatalogue(), records)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || items[0].Unit != "m" || items[1].Unit != "m2" {
		t.Errorf("items = %+v, want separate m and m2 items", items)
	}
}

func TestAggregateUnknownCode(t *testing.T) {
	_, err := Aggregate(DefaultCatalogue(), []Record{{Code: "Z99", Dimension: Dim("A", "b", "c", 1, 1)}})
	if !calcerr.Is(err, calcerr.CodeInternal) {
		t.Errorf("error = %v, want INTERNAL_ERROR", err)
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		c    Category
		want string
	}{
		{Earthworks, "earthworks"},
		{Fittings, "fittings"},
		{Category(42), "category(42)"},
	}
	for _, tt := range tests {
		if got := tt.c.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	cat := DefaultCatalogue()
	w, ok := cat.Lookup("X30.150.UPVC")
	if !ok {
		t.Fatal("X30 not catalogued")
	}
	if got := w.Describe("150 mm uPVC"); got != "150 mm uPVC pipe laid in trench" {
		t.Errorf("Describe() = %q", got)
	}
	w, _ = cat.Lookup("E10")
	if got := w.Describe("ignored"); got != w.Description {
		t.Errorf("Describe() without a verb = %q", got)
	}
}
