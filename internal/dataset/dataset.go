// Package dataset turns a customer-support CSV export into the training
// corpus consumed by the engines, and stores the processed result as JSON.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"supportbot/internal/domain"
)

// ErrNoCSV is returned when a directory contains no CSV file.
var ErrNoCSV = errors.New("no CSV files found in dataset")

var (
	textColumns     = []string{"instruction", "input", "question", "query", "text"}
	responseColumns = []string{"response", "output", "answer", "reply"}
	categoryColumns = []string{"category", "intent", "label", "class"}
)

// Record is one cleaned row.
type Record struct {
	Input    string `json:"input"`
	Target   string `json:"target"`
	Category string `json:"category,omitempty"`
}

// Info describes a processed dataset.
type Info struct {
	TotalSamples      int    `json:"total_samples"`
	TrainSamples      int    `json:"train_samples"`
	ValidationSamples int    `json:"val_samples"`
	TextColumn        string `json:"text_column"`
	ResponseColumn    string `json:"response_column"`
	CategoryColumn    string `json:"category_column,omitempty"`
}

// Processed is the on-disk form of a prepared dataset.
type Processed struct {
	domain.TrainingCorpus
	Info Info `json:"dataset_info"`
}

// Sample is one training pair shown to users.
type Sample struct {
	Input  string `json:"input"`
	Target string `json:"target"`
}

// FindCSV returns path itself when it is a file, otherwise the first CSV
// file found under it in lexical order.
func FindCSV(path string) (string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !st.IsDir() {
		return path, nil
	}
	var found []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
			found = append(found, p)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNoCSV)
	}
	sort.Strings(found)
	return found[0], nil
}

// Columns are the header names chosen for each role.
type Columns struct {
	Text, Response, Category string
	text, response, category int
}

// DetectColumns assigns header columns to roles. A column is claimed by the
// first role whose keywords it contains; each role takes the first match.
// Without a text or response column the first two columns are used.
func DetectColumns(header []string) (Columns, error) {
	if len(header) == 0 {
		return Columns{}, errors.New("dataset has no columns")
	}
	c := Columns{text: -1, response: -1, category: -1}
	for i, name := range header {
		lower := strings.ToLower(name)
		switch {
		case c.text < 0 && containsAny(lower, textColumns):
			c.text = i
		case c.response < 0 && containsAny(lower, responseColumns):
			c.response = i
		case c.category < 0 && containsAny(lower, categoryColumns):
			c.category = i
		}
	}
	if c.text < 0 || c.response < 0 {
		c.text = 0
		c.response = 0
		if len(header) > 1 {
			c.response = 1
		}
	}
	c.Text = header[c.text]
	c.Response = header[c.response]
	if c.category >= 0 {
		c.Category = header[c.category]
	}
	return c, nil
}

// ReadCSV parses rows, dropping those with an empty text or response.
func ReadCSV(r io.Reader) ([]Record, Columns, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return nil, Columns{}, errors.New("dataset is empty")
	}
	if err != nil {
		return nil, Columns{}, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	cols, err := DetectColumns(header)
	if err != nil {
		return nil, Columns{}, err
	}

	var records []Record
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, Columns{}, fmt.Errorf("read row: %w", err)
		}
		rec := Record{Input: field(row, cols.text), Target: field(row, cols.response)}
		if rec.Input == "" || rec.Target == "" {
			continue
		}
		if cols.category >= 0 {
			rec.Category = field(row, cols.category)
		}
		records = append(records, rec)
	}
	return records, cols, nil
}

// LoadCSV reads the CSV at path, or the first CSV inside it when it is a directory.
func LoadCSV(path string) ([]Record, Columns, error) {
	file, err := FindCSV(path)
	if err != nil {
		return nil, Columns{}, err
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, Columns{}, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// Split shuffles records with seed and holds out validationRatio of them.
func Split(records []Record, cols Columns, validationRatio float64, seed int64) *Processed {
	order := make([]int, len(records))
	for i := range order {
		order[i] = i
	}
	rand.New(rand.NewSource(seed)).Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	nVal := 0
	if len(records) > 1 {
		nVal = int(float64(len(records))*validationRatio + 0.999999)
		if nVal >= len(records) {
			nVal = len(records) - 1
		}
	}
	p := &Processed{}
	for k, i := range order {
		split := &p.Train
		if k < nVal {
			split = &p.Validation
		}
		split.Inputs = append(split.Inputs, records[i].Input)
		split.Targets = append(split.Targets, records[i].Target)
	}
	p.Info = Info{
		TotalSamples:      len(records),
		TrainSamples:      p.Train.Len(),
		ValidationSamples: p.Validation.Len(),
		TextColumn:        cols.Text,
		ResponseColumn:    cols.Response,
		CategoryColumn:    cols.Category,
	}
	return p
}

// Samples returns the first n training pairs.
func (p *Processed) Samples(n int) []Sample {
	if n > p.Train.Len() {
		n = p.Train.Len()
	}
	out := make([]Sample, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Sample{Input: p.Train.Inputs[i], Target: p.Train.Targets[i]})
	}
	return out
}

// Save writes the processed dataset atomically.
func Save(path string, p *Processed) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load reads a processed dataset written by Save.
func Load(path string) (*Processed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Processed
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &p, nil
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
