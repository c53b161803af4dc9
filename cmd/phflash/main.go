package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/satoh-er/ph-flash-thermodynamics/phflash"
)

// flashRequest is the single-run JSON input shape: feed composition in
// the fixed H2/N2/O2/NH3/H2O order, pressure in Pa, and target molar
// enthalpy in J/mol.
type flashRequest struct {
	Z     [phflash.NC]float64 `json:"z"`
	P     float64             `json:"p"`
	HSpec float64             `json:"h_spec"`
}

type flashResponse struct {
	T          float64             `json:"t"`
	Beta       float64             `json:"beta"`
	X          [phflash.NC]float64 `json:"x"`
	Y          [phflash.NC]float64 `json:"y"`
	HCalc      float64             `json:"h_calc"`
	Iterations int                 `json:"iterations"`
	Status     int                 `json:"status"`
}

// batchRow is one line of the CSV batch-mode input/output: a flat set
// of gocsv-tagged columns for the feed, conditions and result.
type batchRow struct {
	H2    float64 `csv:"h2"`
	N2    float64 `csv:"n2"`
	O2    float64 `csv:"o2"`
	NH3   float64 `csv:"nh3"`
	H2O   float64 `csv:"h2o"`
	P     float64 `csv:"pressure_pa"`
	HSpec float64 `csv:"h_spec_j_mol"`

	T          float64 `csv:"t_out_k"`
	Beta       float64 `csv:"beta_out"`
	HCalc      float64 `csv:"h_calc_out"`
	Iterations int     `csv:"iterations_out"`
	Status     int     `csv:"status_out"`
}

func runSingle(inputPath string) {
	var req flashRequest
	if inputPath == "" {
		if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
			log.Fatalf("failed to decode stdin JSON: %v", err)
		}
	} else {
		file, err := os.Open(inputPath)
		if err != nil {
			log.Fatalf("failed to open %s: %v", inputPath, err)
		}
		defer file.Close()
		if err := json.NewDecoder(file).Decode(&req); err != nil {
			log.Fatalf("failed to decode %s: %v", inputPath, err)
		}
	}

	opts, err := phflash.FlashInitOptions()
	if err != nil {
		log.Fatalf("failed to initialize flash options: %v", err)
	}

	state, err := phflash.FlashCalculate(req.Z, req.P, req.HSpec, opts, 0)
	resp := flashResponse{
		T:          state.T,
		Beta:       state.Beta,
		X:          state.X,
		Y:          state.Y,
		HCalc:      state.HCalc,
		Iterations: state.Iterations,
		Status:     int(state.Status),
	}
	if err != nil {
		log.Printf("flash did not converge cleanly: %v", err)
	}

	out, marshalErr := json.MarshalIndent(resp, "", "  ")
	if marshalErr != nil {
		log.Fatalf("failed to marshal response: %v", marshalErr)
	}
	fmt.Println(string(out))
}

// runBatch reads a CSV of feed/pressure/enthalpy rows, flashes each
// one independently, and writes the same rows back out with result
// columns appended.
func runBatch(inputPath, outputPath string) {
	file, err := os.Open(inputPath)
	if err != nil {
		log.Fatalf("failed to open %s: %v", inputPath, err)
	}
	defer file.Close()

	var rows []*batchRow
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		log.Fatalf("failed to parse CSV %s: %v", inputPath, err)
	}

	opts, err := phflash.FlashInitOptions()
	if err != nil {
		log.Fatalf("failed to initialize flash options: %v", err)
	}

	for _, row := range rows {
		z := [phflash.NC]float64{row.H2, row.N2, row.O2, row.NH3, row.H2O}
		state, flashErr := phflash.FlashCalculate(z, row.P, row.HSpec, opts, 0)
		row.T = state.T
		row.Beta = state.Beta
		row.HCalc = state.HCalc
		row.Iterations = state.Iterations
		row.Status = int(state.Status)
		if flashErr != nil {
			log.Printf("row (h2=%.4g n2=%.4g o2=%.4g nh3=%.4g h2o=%.4g) failed: %v",
				row.H2, row.N2, row.O2, row.NH3, row.H2O, flashErr)
		}
	}

	out, err := os.Create(outputPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", outputPath, err)
	}
	defer out.Close()

	if err := gocsv.MarshalFile(&rows, out); err != nil {
		log.Fatalf("failed to write CSV %s: %v", outputPath, err)
	}
}

func main() {
	var mode string
	flag.StringVar(&mode, "mode", "single", "run mode: single (one JSON flash) or batch (CSV of rows)")

	var inputPath string
	flag.StringVar(&inputPath, "input", "", "input path (single: JSON file, empty means stdin; batch: CSV file)")

	var outputPath string
	flag.StringVar(&outputPath, "output", "results.csv", "output CSV path for batch mode")

	flag.Parse()

	switch mode {
	case "single":
		runSingle(inputPath)
	case "batch":
		if inputPath == "" {
			log.Fatal("batch mode requires -input")
		}
		runBatch(inputPath, outputPath)
	default:
		log.Fatalf("unknown mode %q, expected single or batch", mode)
	}
}
