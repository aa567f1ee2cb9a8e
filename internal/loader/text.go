// Package loader reads and writes scenarios in the line-oriented text format
// (one entity per comma separated row, '#' comment lines) and as YAML bundles.
//
// Row layouts:
//
//	vehicles:   id,max_weight,battery,speed,start_x,start_y
//	deliveries: id,x,y,weight,priority,time_start,time_end
//	zones:      id,x1,y1,...,xn,yn,active_start,active_end   (n >= 3)
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"dronenav/internal/model"
)

// ErrMalformedRow wraps every parse failure; the message carries the line.
var ErrMalformedRow = errors.New("malformed row")

const (
	vehicleHeader  = "# id,max_weight,battery,speed,start_x,start_y"
	deliveryHeader = "# id,x,y,weight,priority,time_start,time_end"
	zoneHeader     = "# id,x1,y1,...,xn,yn,active_start,active_end"
)

// row is one parsed record with its source line for error messages.
type row struct {
	line   int
	fields []string
}

func (r row) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrMalformedRow, r.line, fmt.Sprintf(format, args...))
}

func (r row) int(i int, name string) (int, error) {
	v, err := strconv.Atoi(r.fields[i])
	if err != nil {
		return 0, r.errorf("%s %q is not an integer", name, r.fields[i])
	}
	return v, nil
}

func (r row) float(i int, name string) (float64, error) {
	v, err := strconv.ParseFloat(r.fields[i], 64)
	if err != nil {
		return 0, r.errorf("%s %q is not a number", name, r.fields[i])
	}
	return v, nil
}

func (r row) clock(i int, name string) (model.Clock, error) {
	v, err := model.ParseClock(r.fields[i])
	if err != nil {
		return 0, r.errorf("%s: %v", name, err)
	}
	return v, nil
}

func readRows(rd io.Reader) ([]row, error) {
	cr := csv.NewReader(rd)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	var out []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
		}
		line, _ := cr.FieldPos(0)
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
		out = append(out, row{line: line, fields: rec})
	}
}

func ReadVehicles(rd io.Reader) ([]model.Vehicle, error) {
	rows, err := readRows(rd)
	if err != nil {
		return nil, err
	}
	out := make([]model.Vehicle, 0, len(rows))
	for _, r := range rows {
		if len(r.fields) != 6 {
			return nil, r.errorf("vehicle rows have 6 fields, got %d", len(r.fields))
		}
		var v model.Vehicle
		if v.ID, err = r.int(0, "id"); err != nil {
			return nil, err
		}
		if v.MaxWeight, err = r.float(1, "max_weight"); err != nil {
			return nil, err
		}
		if v.Battery, err = r.float(2, "battery"); err != nil {
			return nil, err
		}
		if v.Speed, err = r.float(3, "speed"); err != nil {
			return nil, err
		}
		if v.Start.X, err = r.float(4, "start_x"); err != nil {
			return nil, err
		}
		if v.Start.Y, err = r.float(5, "start_y"); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func ReadDeliveries(rd io.Reader) ([]model.Delivery, error) {
	rows, err := readRows(rd)
	if err != nil {
		return nil, err
	}
	out := make([]model.Delivery, 0, len(rows))
	for _, r := range rows {
		if len(r.fields) != 7 {
			return nil, r.errorf("delivery rows have 7 fields, got %d", len(r.fields))
		}
		var d model.Delivery
		if d.ID, err = r.int(0, "id"); err != nil {
			return nil, err
		}
		if d.Pos.X, err = r.float(1, "x"); err != nil {
			return nil, err
		}
		if d.Pos.Y, err = r.float(2, "y"); err != nil {
			return nil, err
		}
		if d.Weight, err = r.float(3, "weight"); err != nil {
			return nil, err
		}
		if d.Priority, err = r.int(4, "priority"); err != nil {
			return nil, err
		}
		if d.Window.Start, err = r.clock(5, "time_start"); err != nil {
			return nil, err
		}
		if d.Window.End, err = r.clock(6, "time_end"); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func ReadZones(rd io.Reader) ([]model.NoFlyZone, error) {
	rows, err := readRows(rd)
	if err != nil {
		return nil, err
	}
	out := make([]model.NoFlyZone, 0, len(rows))
	for _, r := range rows {
		n := len(r.fields)
		if n < 9 || (n-3)%2 != 0 {
			return nil, r.errorf("zone rows need an id, at least 3 x,y pairs and an active window, got %d fields", n)
		}
		var z model.NoFlyZone
		if z.ID, err = r.int(0, "id"); err != nil {
			return nil, err
		}
		for i := 1; i < n-2; i += 2 {
			var p model.Point
			if p.X, err = r.float(i, "x"); err != nil {
				return nil, err
			}
			if p.Y, err = r.float(i+1, "y"); err != nil {
				return nil, err
			}
			z.Vertices = append(z.Vertices, p)
		}
		if z.Active.Start, err = r.clock(n-2, "active_start"); err != nil {
			return nil, err
		}
		if z.Active.End, err = r.clock(n-1, "active_end"); err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, nil
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func WriteVehicles(w io.Writer, vs []model.Vehicle) error {
	var b strings.Builder
	b.WriteString(vehicleHeader + "\n")
	for _, v := range vs {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s,%s\n", v.ID, num(v.MaxWeight), num(v.Battery), num(v.Speed), num(v.Start.X), num(v.Start.Y))
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func WriteDeliveries(w io.Writer, ds []model.Delivery) error {
	var b strings.Builder
	b.WriteString(deliveryHeader + "\n")
	for _, d := range ds {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%d,%s,%s\n", d.ID, num(d.Pos.X), num(d.Pos.Y), num(d.Weight), d.Priority, d.Window.Start, d.Window.End)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func WriteZones(w io.Writer, zs []model.NoFlyZone) error {
	var b strings.Builder
	b.WriteString(zoneHeader + "\n")
	for _, z := range zs {
		fmt.Fprintf(&b, "%d", z.ID)
		for _, p := range z.Vertices {
			fmt.Fprintf(&b, ",%s,%s", num(p.X), num(p.Y))
		}
		fmt.Fprintf(&b, ",%s,%s\n", z.Active.Start, z.Active.End)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
