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

package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	uuid "github.com/satori/go.uuid"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Experiment HTTP API routes
const (
	ExperimentRunRoute    = "run"
	ExperimentStatusRoute = "status"
	ExperimentPerfRoute   = "perf"
)

// Experiment describes the experiment tracking API
type Experiment interface {
	PostRun(run *common.Run) error
	UpdateRunStatus(id uuid.UUID, status string) error
	PostRunPerf(id uuid.UUID, perf *common.Perf) error
}

// ExperimentAPI is a wrapper around our experiment tracking HTTP API
type ExperimentAPI struct {
	Experiment

	Hostname string
	Port     int
	User     string
	Password string
}

func (e *ExperimentAPI) postJSON(url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("[experiment-api] Error JSON-marshaling payload for %s: %s", url, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("[experiment-api] Error building POST request against %s: %s", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(e.User, e.Password)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("[experiment-api] Error performing POST request against %s: %s", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("[experiment-api] Bad status code (%s) performing POST request against %s", resp.Status, url)
	}
	return nil
}

// PostRun registers a new pipeline run
func (e *ExperimentAPI) PostRun(run *common.Run) error {
	url := fmt.Sprintf("http://%s:%d/%s", e.Hostname, e.Port, ExperimentRunRoute)
	return e.postJSON(url, run)
}

// UpdateRunStatus changes the status field of a run
func (e *ExperimentAPI) UpdateRunStatus(id uuid.UUID, status string) error {
	if _, ok := common.ValidStatuses[status]; !ok {
		return fmt.Errorf("[experiment-api] Status \"%s\" is invalid. Allowed values are %s", status, common.ValidStatuses)
	}
	url := fmt.Sprintf("http://%s:%d/%s/%s/%s", e.Hostname, e.Port, ExperimentRunRoute, id, ExperimentStatusRoute)
	return e.postJSON(url, map[string]string{"status": status})
}

// PostRunPerf attaches a perf report to a run
func (e *ExperimentAPI) PostRunPerf(id uuid.UUID, perf *common.Perf) error {
	url := fmt.Sprintf("http://%s:%d/%s/%s/%s", e.Hostname, e.Port, ExperimentRunRoute, id, ExperimentPerfRoute)
	return e.postJSON(url, perf)
}

// ExperimentAPIMock is a mock of the experiment API (for tests & local dev. purposes)
type ExperimentAPIMock struct {
	Experiment

	evilRunUUID string

	// Statuses and Perfs record what was posted, keyed by run UUID
	Statuses map[string][]string
	Perfs    map[string]*common.Perf
}

// NewExperimentAPIMock instantiates our mock of the experiment API
func NewExperimentAPIMock() *ExperimentAPIMock {
	return &ExperimentAPIMock{
		evilRunUUID: "8f6563df-941d-4967-b517-f45169834741",
		Statuses:    map[string][]string{},
		Perfs:       map[string]*common.Perf{},
	}
}

// PostRun registers the run... in a map
func (e *ExperimentAPIMock) PostRun(run *common.Run) error {
	if run.ID.String() == e.evilRunUUID {
		return fmt.Errorf("[experiment-api] Error registering run %s", run.ID)
	}
	e.Statuses[run.ID.String()] = []string{run.Status}
	return nil
}

// UpdateRunStatus records the status transition
func (e *ExperimentAPIMock) UpdateRunStatus(id uuid.UUID, status string) error {
	if id.String() == e.evilRunUUID {
		return fmt.Errorf("[experiment-api] Error updating status of run %s", id)
	}
	if _, ok := common.ValidStatuses[status]; !ok {
		return fmt.Errorf("[experiment-api] Status \"%s\" is invalid. Allowed values are %s", status, common.ValidStatuses)
	}
	e.Statuses[id.String()] = append(e.Statuses[id.String()], status)
	return nil
}

// PostRunPerf records the perf report
func (e *ExperimentAPIMock) PostRunPerf(id uuid.UUID, perf *common.Perf) error {
	if id.String() == e.evilRunUUID {
		return fmt.Errorf("[experiment-api] Error posting perf of run %s", id)
	}
	e.Perfs[id.String()] = perf
	return nil
}
