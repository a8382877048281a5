// Package domain models the city weather / pandemic statistics join.
//
// # Data Sources
//
// Pandemic statistics come from the Our World in Data "latest" snapshot
// (owid-covid-latest.json): a JSON object keyed by country code, one flat
// record per country. Aggregate regions use OWID_ prefixed codes
// ("OWID_WRL", "OWID_EUR") and carry no continent. A handful of entries in
// older snapshots are not objects at all and are skipped by the loader.
//
// City reference data comes from the dr5hn countries-states-cities database
// in one of two shapes:
//
//	cities.json            flat array, one object per city with
//	                       country_code (ISO-2), country_name, state_name,
//	                       latitude, longitude (decimal strings)
//	countries+cities.json  array of countries (id, name, iso3, capital,
//	                       region, subregion) each with a nested "cities"
//	                       list of {id, name, latitude, longitude}
//
// Current weather comes from the OpenWeather current weather endpoint,
// queried first by free-text city name and, for cities the name lookup
// cannot resolve, by latitude/longitude.
//
// # Join Keys
//
// The two city shapes share different identifiers with the pandemic data:
// the nested shape carries ISO-3 codes that match OWID codes, the flat shape
// only shares the country display name. Keys on both sides are run through
// [NormalizeKey] before comparison so that numeric and string identifiers,
// stray whitespace and letter case never cause silent join misses.
//
// # Resolution States
//
// Every selected city moves through a small state machine:
//
//	Pending → NameHit                      resolved by name
//	Pending → NameMiss → CoordHit          resolved by coordinates
//	Pending → NameMiss → CoordMiss         dropped
//
// Name lookups run for the whole batch before any coordinate lookup starts.
// See [Resolver.Resolve].
//
// # Output Rendering
//
// Text sinks render numbers with two decimals and missing values as "N/A"
// ([Placeholder]). See [FormatRow].
package domain
