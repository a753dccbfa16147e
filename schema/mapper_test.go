package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/cred/cred"
)

func TestMapEmptyTokenDropsFieldAndSlot(t *testing.T) {
	nodes, err := Parse("date/manuf/product/lot/boosts/passkey/route/site/dose/name/dob")
	require.NoError(t, err)

	rec, err := Map([]string{"20210511", "MODERNA", "COVID19", "012L20A", "28", "", "C28161", "RA", "500", "JANE DOE", "19820321"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{
		"date":    "20210511",
		"manuf":   "MODERNA",
		"product": "COVID19",
		"lot":     "012L20A",
		"boosts":  "28",
		"route":   "C28161",
		"site":    "RA",
		"dose":    "500",
		"name":    "JANE DOE",
		"dob":     "19820321",
	}, rec)
	assert.NotContains(t, rec, "passkey")
}

func TestMapGroupLiteral(t *testing.T) {
	nodes, err := Parse("a/b/grp\ngrp:x/y")
	require.NoError(t, err)

	rec, err := Map([]string{"V1", "V2", "1", "X1", "Y1"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{
		"a":   "V1",
		"b":   "V2",
		"grp": []Record{{"x": "X1", "y": "Y1"}},
	}, rec)
}

func TestMapGroupCountBeyondTokens(t *testing.T) {
	nodes, err := Parse("a/b/grp\ngrp:x/y")
	require.NoError(t, err)

	rec, err := Map([]string{"1", "2", "2", "3", "4"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{
		"a":   "1",
		"b":   "2",
		"grp": []Record{{"x": "3", "y": "4"}},
	}, rec)
}

func TestMapZeroCountGroupAndTrailingFields(t *testing.T) {
	nodes, err := Parse("a/grp/c\ngrp:x")
	require.NoError(t, err)

	rec, err := Map([]string{"A", "0", "C"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{"a": "A", "grp": []Record{}, "c": "C"}, rec)

	rec, err = Map([]string{"A"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{"a": "A"}, rec)
}

func TestMapRejectsBadCount(t *testing.T) {
	nodes, err := Parse("grp\ngrp:x")
	require.NoError(t, err)
	for _, tok := range []string{"-1", "two", "1.5", "99999999999999999999999"} {
		_, err := Map([]string{tok, "x"}, nodes)
		require.Error(t, err, tok)
		assert.Equal(t, "CRED-SCH-002", cred.RuleID(err), tok)
	}
}

func TestMapHugeCountStopsAtEndOfTokens(t *testing.T) {
	nodes, err := Parse("grp\ngrp:x")
	require.NoError(t, err)
	rec, err := Map([]string{"2000000000", "a", "b"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{"grp": []Record{{"x": "a"}, {"x": "b"}}}, rec)
}

func TestMapNestedGroups(t *testing.T) {
	nodes, err := Parse("id/doses\ndoses:date/lots\nlots:lot/site")
	require.NoError(t, err)
	rec, err := Map([]string{"P1", "2", "D1", "1", "L1", "S1", "D2", "2", "L2", "S2", "L3", "S3"}, nodes)
	require.NoError(t, err)
	assert.Equal(t, Record{
		"id": "P1",
		"doses": []Record{
			{"date": "D1", "lots": []Record{{"lot": "L1", "site": "S1"}}},
			{"date": "D2", "lots": []Record{{"lot": "L2", "site": "S2"}, {"lot": "L3", "site": "S3"}}},
		},
	}, rec)
}

var dgcTokens = []string{
	"d'Arsøns - van Halen", "François-Joan", "DARSONS<VAN<HALEN", "FRANCOIS<JOAN", "2009-02-28", "", "", "",
	"2",
	"840539006", "1119349007", "EU/1/20/1528", "ORG-100030215", "2", "2021-04-21", "2021-04-21T10:00:00Z", "NL", "Ministry of Public Health, Welfare and Sport", "urn:uvci:01:NL:PlA8UWS60Z4RZXVALl6GAZ",
	"840539006", "1119349007", "EU/1/20/1528", "ORG-100030215", "1", "2021-03-21", "2021-03-21T10:00:00Z", "NL", "Ministry of Public Health, Welfare and Sport", "urn:uvci:01:NL:PlA8UWS60Z4RZXVALl6GAZ",
	"2",
	"840539006", "LP6464-4", "Roche LightCycler qPCR", "1232", "2021-04-13T14:20:00+00:00", "260415000", "GGD Fryslân, L-Heliconweg", "NL", "Ministry of Public Health, Welfare and Sport", "urn:uvci:01:NL:GGD/81AAH16AZ",
	"840539006", "LP6464-4", "Roche LightCycler qPCR", "1232", "2021-04-13T14:20:00+00:00", "260415000", "GGD Fryslân, L-Heliconweg", "NL", "Ministry of Public Health, Welfare and Sport", "urn:uvci:01:NL:GGD/81AAH16AZ",
	"1",
	"840539006", "2021-01-10", "2021-05-01", "2021-11-01", "NL", "Ministry of Public Health, Welfare and Sport", "urn:uvci:01:NL:LSP/REC/1289821",
}

func TestMapDigitalGreenCertificate(t *testing.T) {
	nodes, err := Parse(dgcSchema)
	require.NoError(t, err)

	rec, err := Map(dgcTokens, nodes)
	require.NoError(t, err)

	assert.Equal(t, "d'Arsøns - van Halen", rec["nam.fn"])
	assert.Equal(t, "2009-02-28", rec["dob"])
	assert.NotContains(t, rec, "iat")
	assert.NotContains(t, rec, "exp")
	assert.NotContains(t, rec, "iss")

	vax := rec["vax"].([]Record)
	require.Len(t, vax, 2)
	assert.Equal(t, "2", vax[0]["v.dn"])
	assert.Equal(t, "1", vax[1]["v.dn"])
	assert.Equal(t, "urn:uvci:01:NL:PlA8UWS60Z4RZXVALl6GAZ", vax[1]["v.ci"])

	test := rec["test"].([]Record)
	require.Len(t, test, 2)
	assert.Equal(t, "GGD Fryslân, L-Heliconweg", test[0]["t.tc"])

	recov := rec["recov"].([]Record)
	require.Len(t, recov, 1)
	assert.Equal(t, Record{
		"r.tg": "840539006",
		"r.fr": "2021-01-10",
		"r.df": "2021-05-01",
		"r.du": "2021-11-01",
		"r.co": "NL",
		"r.is": "Ministry of Public Health, Welfare and Sport",
		"r.ci": "urn:uvci:01:NL:LSP/REC/1289821",
	}, recov[0])

	_, err = json.Marshal(rec)
	require.NoError(t, err)
}

func TestMapPositional(t *testing.T) {
	assert.Equal(t, Record{"Undefined 00": "10"}, MapPositional([]string{"10"}))

	rec := MapPositional([]string{"a", "", "c"})
	assert.Equal(t, Record{"Undefined 00": "a", "Undefined 01": "", "Undefined 02": "c"}, rec)
}
