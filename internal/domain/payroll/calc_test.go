package payroll

import (
	"errors"
	"testing"
	"time"
)

func attendanceDays(full, half int) []DayAttendance {
	var out []DayAttendance
	day := 1
	for i := 0; i < full; i++ {
		out = append(out, DayAttendance{Date: time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC), HoursWorked: 8})
		day++
	}
	for i := 0; i < half; i++ {
		out = append(out, DayAttendance{Date: time.Date(2026, time.March, day, 0, 0, 0, 0, time.UTC), HoursWorked: 4})
		day++
	}
	return out
}

func TestClassifyDay(t *testing.T) {
	cases := []struct {
		hours float64
		want  DayKind
	}{
		{8, DayFull},
		{9.5, DayFull},
		{12, DayFull},
		{7.999, DayHalf},
		{4, DayHalf},
		{0.25, DayHalf},
		{0, DayAbsent},
		{-1, DayAbsent},
	}
	for _, tc := range cases {
		if got := ClassifyDay(tc.hours); got != tc.want {
			t.Fatalf("expected %v hours to classify as %v, got %v", tc.hours, tc.want, got)
		}
	}
}

func TestComputeMonthlySalaryEndToEnd(t *testing.T) {
	structure := CompensationStructure{Basic: 50000, HRA: 10000, Allowances: 5000, WorkingDays: 22}
	attendance := attendanceDays(20, 2)

	got, err := ComputeMonthlySalary(structure, attendance, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.GrossMonthly != 65000 {
		t.Fatalf("expected gross 65000, got %v", got.GrossMonthly)
	}
	if got.FullDays != 20 || got.HalfDays != 2 {
		t.Fatalf("expected 20 full and 2 half days, got %d and %d", got.FullDays, got.HalfDays)
	}
	if !almostEqual(got.DailyWage, 65000.0/22) {
		t.Fatalf("expected daily wage %v, got %v", 65000.0/22, got.DailyWage)
	}
	// 20 full wages plus 2 half wages is 21 daily wages.
	if !almostEqual(got.TotalSalary, 21*65000.0/22) {
		t.Fatalf("expected total salary %v, got %v", 21*65000.0/22, got.TotalSalary)
	}
	// Annual gross 780000 taxes 12500 + 20% of 280000 = 68500.
	if !almostEqual(got.Tax, 68500.0/12) {
		t.Fatalf("expected monthly tax %v, got %v", 68500.0/12, got.Tax)
	}
	if got.PF != 6000 {
		t.Fatalf("expected pf 6000, got %v", got.PF)
	}
	if got.OtherDeductions != 1000 {
		t.Fatalf("expected other deductions 1000, got %v", got.OtherDeductions)
	}
	wantNet := 21*65000.0/22 - 68500.0/12 - 6000 - 1000
	if !almostEqual(got.NetSalary, wantNet) {
		t.Fatalf("expected net %v, got %v", wantNet, got.NetSalary)
	}
}

func TestComputeMonthlySalaryEmptyAttendance(t *testing.T) {
	structure := CompensationStructure{Basic: 50000, HRA: 10000, Allowances: 5000, WorkingDays: 22}

	got, err := ComputeMonthlySalary(structure, nil, 1000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FullDays != 0 || got.HalfDays != 0 {
		t.Fatalf("expected no counted days, got %d full and %d half", got.FullDays, got.HalfDays)
	}
	if got.TotalSalary != 0 {
		t.Fatalf("expected zero earned salary, got %v", got.TotalSalary)
	}
	// Tax and PF still apply in full, so the net goes negative.
	wantNet := 0 - 68500.0/12 - 6000 - 1000
	if !almostEqual(got.NetSalary, wantNet) {
		t.Fatalf("expected net %v, got %v", wantNet, got.NetSalary)
	}
	if got.NetSalary >= 0 {
		t.Fatalf("expected negative net, got %v", got.NetSalary)
	}
}

func TestComputeMonthlySalaryAbsencesEarnNothing(t *testing.T) {
	structure := CompensationStructure{Basic: 22000, HRA: 0, Allowances: 0, WorkingDays: 22}
	attendance := []DayAttendance{
		{Date: time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC), HoursWorked: 8},
		{Date: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC), HoursWorked: 0},
		{Date: time.Date(2026, time.March, 4, 0, 0, 0, 0, time.UTC), HoursWorked: 3},
		{Date: time.Date(2026, time.March, 5, 0, 0, 0, 0, time.UTC), HoursWorked: 0},
	}

	got, err := ComputeMonthlySalary(structure, attendance, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FullDays != 1 || got.HalfDays != 1 {
		t.Fatalf("expected 1 full and 1 half day, got %d and %d", got.FullDays, got.HalfDays)
	}
	positive := 0
	for _, record := range attendance {
		if record.HoursWorked > 0 {
			positive++
		}
	}
	if got.FullDays+got.HalfDays > positive {
		t.Fatalf("counted %d days from %d positive records", got.FullDays+got.HalfDays, positive)
	}
	// Daily wage 1000: one full day plus one half day earns 1500.
	if !almostEqual(got.TotalSalary, 1500) {
		t.Fatalf("expected total salary 1500, got %v", got.TotalSalary)
	}
}

func TestComputeMonthlySalaryTaxIgnoresAttendance(t *testing.T) {
	structure := CompensationStructure{Basic: 50000, HRA: 10000, Allowances: 5000, WorkingDays: 22}

	fullMonth, err := ComputeMonthlySalary(structure, attendanceDays(22, 0), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	emptyMonth, err := ComputeMonthlySalary(structure, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fullMonth.Tax != emptyMonth.Tax {
		t.Fatalf("tax should not depend on attendance: %v vs %v", fullMonth.Tax, emptyMonth.Tax)
	}
	if fullMonth.PF != emptyMonth.PF {
		t.Fatalf("pf should not depend on attendance: %v vs %v", fullMonth.PF, emptyMonth.PF)
	}
}

func TestComputeMonthlySalaryInvalidWorkingDays(t *testing.T) {
	for _, days := range []int{0, -3} {
		_, err := ComputeMonthlySalary(CompensationStructure{Basic: 10000, WorkingDays: days}, nil, 0)
		if !errors.Is(err, ErrInvalidWorkingDays) {
			t.Fatalf("expected ErrInvalidWorkingDays for %d working days, got %v", days, err)
		}
	}
}

func TestComputeMonthlySalaryIdempotent(t *testing.T) {
	structure := CompensationStructure{Basic: 50000, HRA: 10000, Allowances: 5000, WorkingDays: 22}
	attendance := attendanceDays(18, 3)

	first, err := ComputeMonthlySalary(structure, attendance, 750)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ComputeMonthlySalary(structure, attendance, 750)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v and %+v", first, second)
	}
}
