/*
Command defectdetector trains and evaluates the ELPV solar-panel defect
model over a SQLite sample store. Configuration comes from the environment
(optionally seeded from a .env file):

	DEFECTDETECT_DATASET       path to the SQLite sample store (required)
	DEFECTDETECT_FILTER        optional row filter, e.g. type=='mono'
	DEFECTDETECT_IMG_TYPE      binary|grayscale|rgb (default binary)
	DEFECTDETECT_EPOCHS        override the epoch count
	DEFECTDETECT_AMPLIFY       mirror-amplify the dataset (default true)
	DEFECTDETECT_FORCE_RETRAIN ignore cached weights (default false)
	DEFECTDETECT_WEIGHTS       weights file path (default cache location)
	DEFECTDETECT_PLOT          evaluation figure path (default cache location)
*/
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go-ml.dev/pkg/zorros/zlog"

	"go-ml.dev/pkg/defectdetect/dataset"
	"go-ml.dev/pkg/defectdetect/model"
)

func main() {
	_ = godotenv.Load()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "defectdetector:", err)
		os.Exit(1)
	}
}

func run() error {
	path := os.Getenv("DEFECTDETECT_DATASET")
	if path == "" {
		return fmt.Errorf("DEFECTDETECT_DATASET must point to a SQLite sample store")
	}
	table, err := dataset.LoadSQLite(path, dataset.ELPVSchema())
	if err != nil {
		return err
	}
	ds := dataset.ELPV(table)
	zlog.Info(fmt.Sprintf("loaded dataset %s with %d samples", path, table.Len()))

	if q := os.Getenv("DEFECTDETECT_FILTER"); q != "" {
		if err = ds.Filter(q); err != nil {
			return err
		}
		zlog.Info(fmt.Sprintf("%d samples left after filtering by %q", ds.Samples.Len(), q))
	}

	cfg := model.DefaultConfig()
	if s := os.Getenv("DEFECTDETECT_IMG_TYPE"); s != "" {
		it, err := model.ParseImgType(s)
		if err != nil {
			return err
		}
		if err = cfg.SetImgType(it); err != nil {
			return err
		}
	}
	if s := os.Getenv("DEFECTDETECT_EPOCHS"); s != "" {
		if cfg.Epochs, err = strconv.Atoi(s); err != nil {
			return fmt.Errorf("DEFECTDETECT_EPOCHS: %v", err)
		}
	}

	opt := model.RunOptions{
		Amplify:      envBool("DEFECTDETECT_AMPLIFY", true),
		ForceRetrain: envBool("DEFECTDETECT_FORCE_RETRAIN", false),
		WeightsPath:  os.Getenv("DEFECTDETECT_WEIGHTS"),
		PlotPath:     os.Getenv("DEFECTDETECT_PLOT"),
	}
	return model.FullRun(ds, cfg, opt)
}

func envBool(name string, dflt bool) bool {
	switch strings.ToLower(os.Getenv(name)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return dflt
}
