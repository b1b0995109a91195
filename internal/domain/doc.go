// Package domain models HHS COVID-19 hospital admission reporting data and
// reconstructs it as of past publication dates.
//
// # Data Source
//
// Admission counts originate from the HHS "COVID-19 Reported Patient Impact
// and Hospital Capacity by State" collection on healthdata.gov. Two files
// matter here:
//
//	Time-series file: the full per-state history, republished in whole
//	every time HHS revises the dataset.
//	Daily file: a single report day per publication, released between
//	time-series revisions.
//
// The upstream poller fetches both files on a schedule and archives every
// new publication, so the archive accumulates vintages over time.
//
// # Issue Dates vs Report Dates
//
// Every archived snapshot carries two distinct dates:
//
//	issue date:  the date the file was published by HHS.
//	report date: the date a row's counts were reported for.
//
// A time-series snapshot holds many report dates under one issue date; a
// daily snapshot holds exactly one. Reconstruction at an issue date ([Merge])
// answers "what did the full table look like to someone who downloaded the
// data that day": an exact time-series publication is returned verbatim,
// otherwise the latest earlier time-series file is extended day by day with
// the daily publications, later corrections winning. Days no publication
// covered are kept with missing counts rather than dropped, so date ranges
// stay contiguous.
//
// # Previous-Day Convention
//
// The admission columns
//
//	previous_day_admission_adult_covid_confirmed
//	previous_day_admission_pediatric_covid_confirmed
//
// count admissions that occurred the day BEFORE the row's report date. The
// incidence preprocessor ([Incidence]) therefore shifts every report date
// back one day so output rows are indexed by the admission date itself.
//
// # Locations
//
// States appear in the feed as two-letter USPS abbreviations and are mapped
// to two-digit FIPS codes (the canonical location vocabulary of downstream
// epi tooling) via [LocationTable]. The national aggregate row uses the
// literal code "US" and is computed, not reported: it is the sum over all
// state rows for a date, and is missing whenever any state is missing for
// that date. No partial national sums.
//
// # Missing Values
//
// A nil count means the value was not reported. Missingness is contagious:
// adult+pediatric sums, national sums, weekly sums, and cumulative sums all
// become missing as soon as any contributing value is missing (cumulative
// sums stay missing from the first missing day onward).
//
// # Week Definition
//
// Weekly aggregation uses epidemiological weeks ending on Saturday: each
// date belongs to the week of the next Saturday at or after it. A trailing
// week that the data does not cover through its Saturday is trimmed rather
// than reported low; trimming is decided per location. See
// [WeekEndingSaturday] and [Load].
package domain
