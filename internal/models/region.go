package models

// RegionEntry maps an administrative code to its names. Tags match the
// statistics office reference TSV and the regions table.
type RegionEntry struct {
	AdminCode   string `json:"admin_code" db:"admin_code" csv:"통계청행정동코드"`
	Province    string `json:"province" db:"province" csv:"시도명"`
	District    string `json:"district" db:"district" csv:"시군구명"`
	SubDistrict string `json:"sub_district" db:"sub_district" csv:"행정동명"`
	Prefix      string `json:"prefix" db:"prefix7" csv:"-"`
}
