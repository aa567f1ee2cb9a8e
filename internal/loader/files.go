package loader

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dronenav/internal/model"
)

// File names used by LoadDir and SaveDir.
const (
	VehiclesFile   = "drones.txt"
	DeliveriesFile = "deliveries.txt"
	ZonesFile      = "noflyzones.txt"
)

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	out, err := read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// LoadFiles reads a scenario from three text files. zonesPath may be empty.
func LoadFiles(vehiclesPath, deliveriesPath, zonesPath string) (model.Scenario, error) {
	var s model.Scenario
	var err error
	if s.Vehicles, err = readFile(vehiclesPath, ReadVehicles); err != nil {
		return s, err
	}
	if s.Deliveries, err = readFile(deliveriesPath, ReadDeliveries); err != nil {
		return s, err
	}
	if zonesPath != "" {
		if s.Zones, err = readFile(zonesPath, ReadZones); err != nil {
			return s, err
		}
	}
	return s, nil
}

// LoadDir reads VehiclesFile, DeliveriesFile and, when present, ZonesFile.
func LoadDir(dir string) (model.Scenario, error) {
	zones := filepath.Join(dir, ZonesFile)
	if _, err := os.Stat(zones); err != nil {
		zones = ""
	}
	s, err := LoadFiles(filepath.Join(dir, VehiclesFile), filepath.Join(dir, DeliveriesFile), zones)
	if err != nil {
		return s, err
	}
	s.Name = filepath.Base(dir)
	return s, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveDir writes s as the three text files under dir, creating it if needed.
func SaveDir(dir string, s model.Scenario) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, VehiclesFile), func(w io.Writer) error { return WriteVehicles(w, s.Vehicles) }); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dir, DeliveriesFile), func(w io.Writer) error { return WriteDeliveries(w, s.Deliveries) }); err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, ZonesFile), func(w io.Writer) error { return WriteZones(w, s.Zones) })
}
