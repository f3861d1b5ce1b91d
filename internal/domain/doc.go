// Package domain models the stargazing forecast core: locations on the
// 0.25 degree NOAA grid, hourly forecast series, astronomical visibility
// windows, and the error taxonomy shared by every component.
//
// # Data Sources
//
// Forecast values come from two NOAA sources with different refresh cadences:
//
//	GFS:  total cloud cover and relative humidity, one grid per forecast
//	      hour (0..71).
//	GEFS: total aerosol optical thickness, one grid every three forecast
//	      hours (0, 3, ..., 69); intermediate hours reuse the value at
//	      floor(h/3)*3.
//
// Both sources publish four times a day at UTC hours 00, 06, 12 and 18. A
// dataset directory is usable only once its completion marker exists; the
// marker is written by the acquisition loop after every forecast hour of both
// sources has been processed.
//
// # Timestamps
//
// Dataset base timestamps use the compact YYYYMMDDHH form (UTC), e.g.
// "2023071112" for the 12Z run of July 11 2023. Presentation buckets hours by
// local calendar date ("YYYY/MM/DD") and two-digit local hour ("00".."23").
//
// # Astronomical conventions
//
// All event arithmetic runs in UTC; times are converted to the location's
// IANA zone only at the output boundary. Sun and moon windows pair a setting
// with the following rising (they delimit object-free intervals); galactic
// center windows pair a rising with the following setting and carry the
// transit instant. Rise and set are geometric altitude-zero crossings.
//
// # Errors
//
// Five kinds cover every failure mode of the core; see [Kind]. Only
// MissingData is recoverable, and only during score aggregation.
package domain
