// register.go wires the CSV decoder into the ensemble package's registration
// variable (NewSummaryReaderFunc). This init() runs when any package imports
// ensemble/smrycsv, so a blank import is enough for realizations without an
// explicit RealizationConfig.OpenSummary to decode summary files as CSV.
package smrycsv

import "github.com/asnyv/fmu-ensemble/ensemble"

func init() {
	ensemble.NewSummaryReaderFunc = func(path string) (ensemble.SummaryReader, error) {
		r, err := Open(path)
		if err != nil {
			// A typed-nil *Reader would not compare equal to nil.
			return nil, err
		}
		return r, nil
	}
}
