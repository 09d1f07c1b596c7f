package client

import (
	"context"
	"time"

	"klinik/pkg/model"
)

const PathDiagnosis = "/emr/recommendation/diagnosis"

// DiagnosisClient requests AI diagnosis suggestions for an encounter.
type DiagnosisClient struct {
	httpClient *HttpClient
}

func NewDiagnosisClient(baseURL, token string, timeout time.Duration) *DiagnosisClient {
	hc := NewHttpClient(baseURL, timeout)
	hc.Token = token
	return &DiagnosisClient{httpClient: hc}
}

func (c *DiagnosisClient) Recommend(ctx context.Context, req model.DiagnosisRequest) (*model.DiagnosisResult, error) {
	resp, err := c.httpClient.POST(ctx, PathDiagnosis, req)
	if err != nil {
		return nil, err
	}

	var result model.DiagnosisResult
	if err := resp.DecodeEnvelope(&result); err != nil {
		return nil, err
	}
	if result.Recommendations == nil {
		result.Recommendations = []model.DiagnosisRecommendation{}
	}
	return &result, nil
}
