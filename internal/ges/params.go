package ges

import (
	"github.com/rotisserie/eris"

	"github.com/medcoast/ges-cli/internal/region"
)

// Year domain for analysis inputs.
const (
	MinYear = 2000
	MaxYear = 2030
)

// Params are the user-supplied inputs of one analysis run.
type Params struct {
	Country   string `json:"country"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
	BufferKM  int    `json:"buffer_km"`
}

// Validate rejects out-of-domain inputs before any remote call is made.
func (p Params) Validate() error {
	if !region.Supported(p.Country) {
		return eris.Errorf("ges: unknown country %q", p.Country)
	}
	if p.StartYear < MinYear || p.StartYear > MaxYear {
		return eris.Errorf("ges: start year %d outside %d-%d", p.StartYear, MinYear, MaxYear)
	}
	if p.EndYear < MinYear || p.EndYear > MaxYear {
		return eris.Errorf("ges: end year %d outside %d-%d", p.EndYear, MinYear, MaxYear)
	}
	if p.EndYear < p.StartYear {
		return eris.Errorf("ges: end year %d before start year %d", p.EndYear, p.StartYear)
	}
	if p.BufferKM < region.MinBufferKM || p.BufferKM > region.MaxBufferKM {
		return eris.Errorf("ges: buffer %d km outside %d-%d",
			p.BufferKM, region.MinBufferKM, region.MaxBufferKM)
	}
	return nil
}
