package dateutil

import (
	"time"
)

// Age calculates the age at a given date
func Age(birthDate, atDate time.Time) int {
	age := atDate.Year() - birthDate.Year()
	if atDate.Month() < birthDate.Month() ||
		(atDate.Month() == birthDate.Month() && atDate.Day() < birthDate.Day()) {
		age--
	}
	return age
}

// BirthYear derives the birth year from an age observed in a given calendar year.
func BirthYear(asOfYear, age int) int {
	return asOfYear - age
}

// RMDAge returns the age when Required Minimum Distributions start for a
// given birth year, per the SECURE 2.0 Act schedule.
func RMDAge(birthYear int) int {
	switch {
	case birthYear <= 1950:
		return 72
	case birthYear >= 1951 && birthYear <= 1959:
		return 73
	default: // 1960 and later
		return 75
	}
}

// IsRMDAge reports whether RMDs apply at the given age for a birth year.
func IsRMDAge(birthYear, age int) bool {
	return age >= RMDAge(birthYear)
}

// IsEarlyWithdrawalAge reports whether retirement-account withdrawals at this
// age are subject to the 10% early-withdrawal penalty (before 59 1/2; with
// whole-year ages, age 59 is still inside the penalty window).
func IsEarlyWithdrawalAge(age int) bool {
	return age < 60
}

// OneYearBefore returns the long-term capital gains cutoff for a sale date:
// lots acquired on or before this date have been held more than one year.
func OneYearBefore(saleDate time.Time) time.Time {
	return saleDate.AddDate(-1, 0, 0)
}

// YearStart returns midnight UTC on January 1 of the given year.
func YearStart(year int) time.Time {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
}

// IsLeapYear checks if a year is a leap year
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// DaysInYear returns the number of days in a given year
func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}
