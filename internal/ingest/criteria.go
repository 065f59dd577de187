package ingest

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/seenimoa/gproverlay/pkg/models"
)

// CriteriaFormatError reports a criteria file that is valid JSON but does
// not match either accepted shape.
type CriteriaFormatError struct {
	Path string
}

func (e *CriteriaFormatError) Error() string {
	return fmt.Sprintf("criteria file %s matches neither a flat criteria list nor a channels_by_cluster document", e.Path)
}

type flatCriterion struct {
	ClusterID    string `json:"cluster_id"`
	CriteriaID   string `json:"criteria_id"`
	Region       string `json:"region"`
	RegionGuess  string `json:"region_guess"`
	IndustryName string `json:"industry_name"`
}

type clusterDocument struct {
	ChannelsByCluster []struct {
		ClusterID        string `json:"cluster_id"`
		Region           string `json:"region"`
		EconomicChannels []struct {
			LinkedIndustries []struct {
				IndustryName string `json:"industry_name"`
			} `json:"linked_industries"`
		} `json:"economic_channels"`
	} `json:"channels_by_cluster"`
}

// LoadCriteria reads screening criteria from a JSON file in either of two
// shapes: a flat list of {cluster_id, region|region_guess, industry_name}
// objects, or a nested document with channels_by_cluster carrying cluster
// level regions and per-channel linked industries. Entries missing any of
// the three fields are dropped.
func LoadCriteria(path string) ([]models.Criterion, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open criteria file: %w", err)
	}

	var flat []flatCriterion
	if err := json.Unmarshal(raw, &flat); err == nil {
		criteria := make([]models.Criterion, 0, len(flat))
		for _, c := range flat {
			id := c.ClusterID
			if id == "" {
				id = c.CriteriaID
			}
			region := c.RegionGuess
			if region == "" {
				region = c.Region
			}
			if id == "" || region == "" || c.IndustryName == "" {
				continue
			}
			criteria = append(criteria, models.Criterion{
				ClusterID:    id,
				RegionGuess:  region,
				IndustryName: c.IndustryName,
			})
		}
		return criteria, nil
	}

	var doc clusterDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse criteria file %s: %w", path, err)
	}
	if doc.ChannelsByCluster == nil {
		return nil, &CriteriaFormatError{Path: path}
	}

	var criteria []models.Criterion
	for _, cl := range doc.ChannelsByCluster {
		for _, ch := range cl.EconomicChannels {
			for _, li := range ch.LinkedIndustries {
				if cl.ClusterID == "" || cl.Region == "" || li.IndustryName == "" {
					continue
				}
				criteria = append(criteria, models.Criterion{
					ClusterID:    cl.ClusterID,
					RegionGuess:  cl.Region,
					IndustryName: li.IndustryName,
				})
			}
		}
	}
	return criteria, nil
}
