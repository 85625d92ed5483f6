package indices

import (
	"context"
	"encoding/json"
	"fmt"

	"trackflow/client/es"
	"trackflow/domain"

	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	FeatureIndexName = "features"
)

type FeatureDocument struct {
	domain.Feature
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexFeatures(features []domain.Feature) error {
	docs := make([]FeatureDocument, 0, len(features))
	for _, record := range features {
		docs = append(docs, FeatureDocument{Feature: record})
	}

	if err := saveFeatureDocuments(docs); err != nil {
		return err
	}
	return nil
}

func saveFeatureDocuments(docs []FeatureDocument) BatchActionError {
	errs := BatchActionError{}

	for _, doc := range docs {
		if err := es.IndexFunc(context.Background(), FeatureIndexName, doc.ID, doc); err != nil {
			errs[doc.ID] = err
			logrus.Warnf("index feature %d %s %s\n", doc.ID, doc.Title, err)
		} else {
			logrus.Infof("index feature %d %s successfully\n", doc.ID, doc.Title)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// SearchFeatures is a keyword match over title and description, scoped to projects.
func SearchFeatures(keyword string, projectIDs []types.ID) ([]domain.Feature, error) {
	must := []es.H{
		{"multi_match": es.H{"query": keyword, "fields": []string{"title", "description"}}},
	}
	if len(projectIDs) > 0 {
		must = append(must, es.H{"terms": es.H{"projectId": projectIDs}})
	}
	query := es.H{"query": es.H{"bool": es.H{"must": must}}}

	result, err := es.SearchFunc(context.Background(), FeatureIndexName, query)
	if err != nil {
		return nil, err
	}

	records := make([]domain.Feature, 0, len(result.Hits.Hits))
	for _, hit := range result.Hits.Hits {
		record := domain.Feature{}
		if err := json.Unmarshal([]byte(hit.Source), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
