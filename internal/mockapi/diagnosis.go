package mockapi

import (
	"strings"

	"klinik/pkg/model"
)

type cannedDiagnosis struct {
	keywords []string
	model.DiagnosisRecommendation
}

var canned = []cannedDiagnosis{
	{[]string{"gigi", "karies", "gusi"}, model.DiagnosisRecommendation{
		Diagnosis: "Pulpitis", ICD10: "K04.0", Reasoning: "Keluhan nyeri gigi dengan temuan karies",
	}},
	{[]string{"batuk", "pilek", "tenggorokan"}, model.DiagnosisRecommendation{
		Diagnosis: "Infeksi saluran napas atas akut", ICD10: "J06.9", Reasoning: "Gejala batuk dan pilek tanpa tanda bahaya",
	}},
	{[]string{"demam", "panas"}, model.DiagnosisRecommendation{
		Diagnosis: "Demam, tidak spesifik", ICD10: "R50.9", Reasoning: "Demam tanpa fokus infeksi yang jelas",
	}},
	{[]string{"perut", "mual", "diare"}, model.DiagnosisRecommendation{
		Diagnosis: "Gastroenteritis", ICD10: "A09", Reasoning: "Keluhan saluran cerna akut",
	}},
}

var fallback = model.DiagnosisRecommendation{
	Diagnosis: "Pemeriksaan umum", ICD10: "Z00.0", Reasoning: "Tidak ada pola keluhan yang dikenali",
}

// Recommend matches keywords in the anamnesis and examination against a fixed
// table. It stands in for the clinic's AI service.
func Recommend(req model.DiagnosisRequest) model.DiagnosisResult {
	text := strings.ToLower(req.Anamnesis + " " + req.Examination)

	var out []model.DiagnosisRecommendation
	for _, c := range canned {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				out = append(out, c.DiagnosisRecommendation)
				break
			}
		}
	}
	if len(out) == 0 {
		out = append(out, fallback)
	}

	names := make([]string, 0, len(out))
	for _, r := range out {
		names = append(names, r.Diagnosis)
	}
	return model.DiagnosisResult{
		Recommendations: out,
		Summary:         "Kemungkinan: " + strings.Join(names, ", "),
	}
}
