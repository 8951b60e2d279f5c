// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/seccorpus/internal/bootstrap"
	uerrors "github.com/kraklabs/seccorpus/internal/errors"
	"github.com/kraklabs/seccorpus/pkg/pipeline"
	"github.com/kraklabs/seccorpus/pkg/record"
)

func TestRunError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"cancelled", fmt.Errorf("intent: %w", context.Canceled), uerrors.ExitGeneric},
		{"alignment", fmt.Errorf("stage: %w", &pipeline.AlignmentError{Stage: record.StageIntent}), uerrors.ExitAlignment},
		{"missing snapshot", fmt.Errorf("read filter: %w", pipeline.ErrSnapshotMissing), uerrors.ExitSnapshot},
		{"contract", fmt.Errorf("mask: %w", pipeline.ErrContract), uerrors.ExitInternal},
		{"user error passes through", uerrors.NewVCSError("x", "", "", nil), uerrors.ExitVCS},
		{"unknown", errors.New("boom"), uerrors.ExitInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, exitCode(runError(tt.err)))
		})
	}
	assert.NoError(t, runError(nil))
}

func TestConfigError(t *testing.T) {
	err := configError("/x/.seccorpus/project.yaml", fmt.Errorf("x: %w", bootstrap.ErrNotInitialized))
	var ue *uerrors.UserError
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "No seccorpus project found", ue.Message)
	assert.Equal(t, uerrors.ExitConfig, ue.ExitCode)

	err = configError("p", errors.New("yaml: line 3"))
	assert.ErrorAs(t, err, &ue)
	assert.Equal(t, "Invalid project configuration", ue.Message)
}
