package ges

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsValidate(t *testing.T) {
	valid := Params{Country: "Yemen", StartYear: 2002, EndYear: 2022, BufferKM: 5}

	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr string
	}{
		{name: "valid", mutate: func(*Params) {}},
		{name: "same start and end year", mutate: func(p *Params) { p.EndYear = p.StartYear }},
		{name: "buffer at lower bound", mutate: func(p *Params) { p.BufferKM = 1 }},
		{name: "buffer at upper bound", mutate: func(p *Params) { p.BufferKM = 10 }},
		{
			name:    "unknown country",
			mutate:  func(p *Params) { p.Country = "Atlantis" },
			wantErr: "unknown country",
		},
		{
			name:    "lowercase country is not a match",
			mutate:  func(p *Params) { p.Country = "yemen" },
			wantErr: "unknown country",
		},
		{
			name:    "start year before domain",
			mutate:  func(p *Params) { p.StartYear = 1999 },
			wantErr: "start year",
		},
		{
			name:    "end year after domain",
			mutate:  func(p *Params) { p.EndYear = 2031 },
			wantErr: "end year",
		},
		{
			name:    "end before start",
			mutate:  func(p *Params) { p.StartYear, p.EndYear = 2022, 2002 },
			wantErr: "before start",
		},
		{
			name:    "buffer too small",
			mutate:  func(p *Params) { p.BufferKM = 0 },
			wantErr: "buffer",
		},
		{
			name:    "buffer too large",
			mutate:  func(p *Params) { p.BufferKM = 11 },
			wantErr: "buffer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
