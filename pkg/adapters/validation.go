package adapters

import (
	"github.com/de-tools/promo-lab/pkg/models/api"
	"github.com/de-tools/promo-lab/pkg/models/domain"
)

func MapSeverityDomainToApi(s domain.Severity) api.Severity {
	switch s {
	case domain.SeverityBlock:
		return api.SeverityBlock
	default:
		return api.SeverityWarn
	}
}

func MapSeverityApiToDomain(s api.Severity) domain.Severity {
	if s == api.SeverityBlock {
		return domain.SeverityBlock
	}
	return domain.SeverityWarn
}

func MapStatusDomainToApi(s domain.ValidationStatus) api.Status {
	switch s {
	case domain.StatusBlock:
		return api.StatusBlock
	case domain.StatusWarn:
		return api.StatusWarn
	default:
		return api.StatusPass
	}
}

func MapStatusApiToDomain(s api.Status) domain.ValidationStatus {
	switch s {
	case api.StatusBlock:
		return domain.StatusBlock
	case api.StatusWarn:
		return domain.StatusWarn
	default:
		return domain.StatusPass
	}
}

func MapValidationReportDomainToApi(r domain.ValidationReport) api.ValidationReport {
	res := api.ValidationReport{
		ScenarioID:   r.ScenarioID,
		Status:       MapStatusDomainToApi(r.Status),
		Issues:       make([]api.ValidationIssue, 0, len(r.Issues)),
		OverallScore: r.OverallScore,
	}
	for _, issue := range r.Issues {
		res.Issues = append(res.Issues, api.ValidationIssue{
			Type:               issue.Type,
			Severity:           MapSeverityDomainToApi(issue.Severity),
			Message:            issue.Message,
			SuggestedFix:       issue.SuggestedFix,
			AffectedDepartment: issue.AffectedDepartment,
		})
	}
	return res
}

func MapValidationReportApiToDomain(r api.ValidationReport) domain.ValidationReport {
	res := domain.ValidationReport{
		ScenarioID:   r.ScenarioID,
		Status:       MapStatusApiToDomain(r.Status),
		Issues:       make([]domain.ValidationIssue, 0, len(r.Issues)),
		OverallScore: r.OverallScore,
	}
	for _, issue := range r.Issues {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Type:               issue.Type,
			Severity:           MapSeverityApiToDomain(issue.Severity),
			Message:            issue.Message,
			SuggestedFix:       issue.SuggestedFix,
			AffectedDepartment: issue.AffectedDepartment,
		})
	}
	return res
}
