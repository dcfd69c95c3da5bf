// Package labels reads normalized ground-truth annotations and converts them
// to pixel space.
//
// A label file holds one box per line:
//
//	<class_id> <center_x> <center_y> <width> <height>
//
// with coordinates expressed as fractions of the image size. The file for
// dataset/images/foo.jpg lives at dataset/labels/foo.txt.
package labels

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Dir is the label directory name inside a dataset.
	Dir = "labels"
	// Extension is the label file extension.
	Extension = ".txt"

	minFields = 5
)

// NormalizedBox is a center-form box in normalized coordinates. Values are
// conventionally in [0,1] but are not clamped.
type NormalizedBox struct {
	CenterX float64 `json:"center_x" yaml:"center_x"`
	CenterY float64 `json:"center_y" yaml:"center_y"`
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
}

// Record is one parsed line of a label file.
type Record struct {
	ClassID int           `json:"class_id" yaml:"class_id"`
	Box     NormalizedBox `json:"box" yaml:"box"`
}

// Parse reads label records from r.
//
// Lines with fewer than five fields, or whose fields are not numeric, are
// skipped without aborting the rest of the file. Fields after the fifth are
// ignored.
//
// Arguments:
//   - r: The label file contents.
//
// Returns:
//   - []Record: The well-formed records, in file order.
//   - error: An error only if reading from r fails.
func Parse(r io.Reader) ([]Record, error) {
	var records []Record

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		record, ok := parseLine(scanner.Text())
		if !ok {
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return records, errors.Wrap(err, "scan label file")
	}

	return records, nil
}

// ParseFile reads the label file at path.
//
// Arguments:
//   - path: The label file path.
//
// Returns:
//   - []Record: The parsed records.
//   - bool: False if the file does not exist. A missing file is not an error.
//   - error: Any other open or read failure.
func ParseFile(path string) ([]Record, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "open label file %s", path)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, true, errors.Wrapf(err, "parse label file %s", path)
	}
	return records, true, nil
}

// PathFor returns the label file path matching an image of a dataset.
//
// Arguments:
//   - datasetDir: The dataset root (containing images/ and labels/).
//   - imageName: The image file name or path; only its stem is used.
//
// Returns:
//   - string: datasetDir/labels/<stem>.txt
func PathFor(datasetDir, imageName string) string {
	base := filepath.Base(imageName)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(datasetDir, Dir, stem+Extension)
}

// Boxes projects records onto their boxes.
func Boxes(records []Record) []NormalizedBox {
	boxes := make([]NormalizedBox, 0, len(records))
	for _, r := range records {
		boxes = append(boxes, r.Box)
	}
	return boxes
}

func parseLine(line string) (Record, bool) {
	fields := strings.Fields(line)
	if len(fields) < minFields {
		return Record{}, false
	}

	classID, err := strconv.Atoi(fields[0])
	if err != nil {
		// Some exporters write the class as a float ("0.0").
		f, ferr := strconv.ParseFloat(fields[0], 64)
		if ferr != nil {
			return Record{}, false
		}
		classID = int(f)
	}

	var coords [4]float64
	for i := range coords {
		v, err := strconv.ParseFloat(fields[i+1], 64)
		if err != nil {
			return Record{}, false
		}
		coords[i] = v
	}

	return Record{
		ClassID: classID,
		Box: NormalizedBox{
			CenterX: coords[0],
			CenterY: coords[1],
			Width:   coords[2],
			Height:  coords[3],
		},
	}, true
}
