package payroll

import "time"

// CompensationStructure is an employee's fixed monthly pay split plus the
// number of working days attendance is normalized against.
type CompensationStructure struct {
	Basic       float64 `json:"basic"`
	HRA         float64 `json:"hra"`
	Allowances  float64 `json:"allowances"`
	WorkingDays int     `json:"workingDays"`
}

// DayAttendance is one logged work day. A day with no record at all counts
// as absent, exactly like a zero-hour record.
type DayAttendance struct {
	Date        time.Time `json:"date"`
	HoursWorked float64   `json:"hoursWorked"`
}

type DayKind int

const (
	DayAbsent DayKind = iota
	DayHalf
	DayFull
)

// SalaryBreakdown is the full result of one monthly salary computation.
type SalaryBreakdown struct {
	GrossMonthly    float64 `json:"grossMonthly"`
	FullDays        int     `json:"fullDays"`
	HalfDays        int     `json:"halfDays"`
	DailyWage       float64 `json:"dailyWage"`
	TotalSalary     float64 `json:"totalSalary"`
	Tax             float64 `json:"tax"`
	PF              float64 `json:"pf"`
	OtherDeductions float64 `json:"otherDeductions"`
	NetSalary       float64 `json:"netSalary"`
}

// ClassifyDay buckets hours worked into full, half, or absent. The same
// classification drives both attendance summaries and salary computation so
// the two can never disagree.
func ClassifyDay(hoursWorked float64) DayKind {
	switch {
	case hoursWorked >= FullDayHours:
		return DayFull
	case hoursWorked > 0:
		return DayHalf
	default:
		return DayAbsent
	}
}

// ComputeMonthlySalary turns a compensation structure, the month's attendance
// and any ad hoc deductions into a SalaryBreakdown.
//
// Earned pay is attendance-proportional in whole-day buckets: full days earn
// the daily wage, half days earn half of it. Income tax is always assessed on
// the full annualized gross regardless of attendance, and provident fund is
// 12% of the basic component only. Net salary may be negative; callers that
// cannot pay out a negative amount flag it rather than clamp it.
func ComputeMonthlySalary(structure CompensationStructure, records []DayAttendance, otherDeductions float64) (SalaryBreakdown, error) {
	if structure.WorkingDays <= 0 {
		return SalaryBreakdown{}, ErrInvalidWorkingDays
	}

	gross := structure.Basic + structure.HRA + structure.Allowances
	pf := structure.Basic * PFRate

	fullDays, halfDays := 0, 0
	for _, record := range records {
		switch ClassifyDay(record.HoursWorked) {
		case DayFull:
			fullDays++
		case DayHalf:
			halfDays++
		}
	}

	dailyWage := gross / float64(structure.WorkingDays)
	totalSalary := float64(fullDays)*dailyWage + float64(halfDays)*(dailyWage/2)

	annualTax := ComputeAnnualTax(DefaultTaxSlabs, gross*MonthsPerYear)
	monthlyTax := annualTax / MonthsPerYear

	return SalaryBreakdown{
		GrossMonthly:    gross,
		FullDays:        fullDays,
		HalfDays:        halfDays,
		DailyWage:       dailyWage,
		TotalSalary:     totalSalary,
		Tax:             monthlyTax,
		PF:              pf,
		OtherDeductions: otherDeductions,
		NetSalary:       totalSalary - monthlyTax - pf - otherDeductions,
	}, nil
}
