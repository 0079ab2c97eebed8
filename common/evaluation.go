/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package common

import (
	"fmt"
	"strings"
)

// Perf describes how well a model did on a labeled dataset: the global accuracy and the recall
// achieved on each label. This is the payload posted back to the experiment API once a prediction
// or transform run completes.
type Perf struct {
	Accuracy float64            `json:"perf"`
	PerLabel map[string]float64 `json:"label_perf"`
}

// Accuracy compares a predicted label column against the actual one and returns the fraction of
// matches. Labels are compared after whitespace trimming (the census dataset ships its cells with
// a leading space).
func Accuracy(predicted, actual []string) (float64, error) {
	if len(predicted) != len(actual) {
		return 0, fmt.Errorf("[evaluation] Predicted and actual label columns differ in length (%d vs %d)", len(predicted), len(actual))
	}
	if len(actual) == 0 {
		return 0, fmt.Errorf("[evaluation] Empty label columns")
	}

	hits := 0
	for n := range actual {
		if strings.TrimSpace(predicted[n]) == strings.TrimSpace(actual[n]) {
			hits++
		}
	}
	return float64(hits) / float64(len(actual)), nil
}

// ComputePerf tallies the global accuracy and the per-label recall of a prediction column
func ComputePerf(predicted, actual []string) (*Perf, error) {
	accuracy, err := Accuracy(predicted, actual)
	if err != nil {
		return nil, err
	}

	hits := map[string]int{}
	totals := map[string]int{}
	for n := range actual {
		label := strings.TrimSpace(actual[n])
		totals[label]++
		if strings.TrimSpace(predicted[n]) == label {
			hits[label]++
		}
	}

	perLabel := map[string]float64{}
	for label, total := range totals {
		perLabel[label] = float64(hits[label]) / float64(total)
	}

	return &Perf{
		Accuracy: accuracy,
		PerLabel: perLabel,
	}, nil
}
