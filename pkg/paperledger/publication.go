package paperledger

import (
	"reflect"
	"sync"
)

// RTransparentPublication is one row of rtransparent output for a publication.
//
// Every indicator is nullable: the extraction tool emits NA when it cannot
// decide. Rows are write-once. WorkID and ProvenanceID are set by the loader.
type RTransparentPublication struct {
	ID int64 `db:"-" csv:"-" json:"id,omitempty"`

	// Bibliographic fields.
	Title                  *string `db:"title" csv:"title,omitempty" json:"title,omitempty"`
	Author                 *string `db:"author" csv:"author,omitempty" json:"author,omitempty"`
	IsOpenCode             *bool   `db:"is_open_code" csv:"is_open_code,omitempty" json:"is_open_code,omitempty"`
	IsOpenData             *bool   `db:"is_open_data" csv:"is_open_data,omitempty" json:"is_open_data,omitempty"`
	Year                   *int64  `db:"year" csv:"year,omitempty" json:"year,omitempty"`
	Filename               *string `db:"filename" csv:"filename,omitempty" json:"filename,omitempty"`
	PMCIDPMC               *int64  `db:"pmcid_pmc" csv:"pmcid_pmc,omitempty" json:"pmcid_pmc,omitempty"`
	PMID                   *int64  `db:"pmid" csv:"pmid,omitempty" json:"pmid,omitempty"`
	DOI                    *string `db:"doi" csv:"doi,omitempty" json:"doi,omitempty"`
	YearEpub               *int64  `db:"year_epub" csv:"year_epub,omitempty" json:"year_epub,omitempty"`
	YearPpub               *int64  `db:"year_ppub" csv:"year_ppub,omitempty" json:"year_ppub,omitempty"`
	Journal                *string `db:"journal" csv:"journal,omitempty" json:"journal,omitempty"`
	Publisher              *string `db:"publisher" csv:"publisher,omitempty" json:"publisher,omitempty"`
	AffiliationCountry     *string `db:"affiliation_country" csv:"affiliation_country,omitempty" json:"affiliation_country,omitempty"`
	AffiliationInstitution *string `db:"affiliation_institution" csv:"affiliation_institution,omitempty" json:"affiliation_institution,omitempty"`
	Type                   *string `db:"type" csv:"type,omitempty" json:"type,omitempty"`
	DataText               *string `db:"data_text" csv:"data_text,omitempty" json:"data_text,omitempty"`

	// Data sharing.
	IsRelevantData      *bool   `db:"is_relevant_data" csv:"is_relevant_data,omitempty" json:"is_relevant_data,omitempty"`
	ComSpecificDB       *string `db:"com_specific_db" csv:"com_specific_db,omitempty" json:"com_specific_db,omitempty"`
	ComGeneralDB        *string `db:"com_general_db" csv:"com_general_db,omitempty" json:"com_general_db,omitempty"`
	ComGithubData       *string `db:"com_github_data" csv:"com_github_data,omitempty" json:"com_github_data,omitempty"`
	Dataset             *string `db:"dataset" csv:"dataset,omitempty" json:"dataset,omitempty"`
	ComFileFormats      *string `db:"com_file_formats" csv:"com_file_formats,omitempty" json:"com_file_formats,omitempty"`
	ComSupplementalData *string `db:"com_supplemental_data" csv:"com_supplemental_data,omitempty" json:"com_supplemental_data,omitempty"`
	ComDataAvailibility *string `db:"com_data_availibility" csv:"com_data_availibility,omitempty" json:"com_data_availibility,omitempty"`
	CodeText            *string `db:"code_text" csv:"code_text,omitempty" json:"code_text,omitempty"`

	// Code sharing.
	IsRelevantCode *bool   `db:"is_relevant_code" csv:"is_relevant_code,omitempty" json:"is_relevant_code,omitempty"`
	ComCode        *string `db:"com_code" csv:"com_code,omitempty" json:"com_code,omitempty"`
	ComSupplCode   *string `db:"com_suppl_code" csv:"com_suppl_code,omitempty" json:"com_suppl_code,omitempty"`

	// Conflict of interest.
	IsCOIPred       *bool   `db:"is_coi_pred" csv:"is_coi_pred,omitempty" json:"is_coi_pred,omitempty"`
	COIText         *string `db:"coi_text" csv:"coi_text,omitempty" json:"coi_text,omitempty"`
	IsCOIPMCFN      *bool   `db:"is_coi_pmc_fn" csv:"is_coi_pmc_fn,omitempty" json:"is_coi_pmc_fn,omitempty"`
	IsCOIPMCTitle   *bool   `db:"is_coi_pmc_title" csv:"is_coi_pmc_title,omitempty" json:"is_coi_pmc_title,omitempty"`
	IsRelevantCOI   *bool   `db:"is_relevant_coi" csv:"is_relevant_coi,omitempty" json:"is_relevant_coi,omitempty"`
	IsRelevantCOIHi *bool   `db:"is_relevant_coi_hi" csv:"is_relevant_coi_hi,omitempty" json:"is_relevant_coi_hi,omitempty"`
	IsRelevantCOILo *bool   `db:"is_relevant_coi_lo" csv:"is_relevant_coi_lo,omitempty" json:"is_relevant_coi_lo,omitempty"`
	IsExplicitCOI   *bool   `db:"is_explicit_coi" csv:"is_explicit_coi,omitempty" json:"is_explicit_coi,omitempty"`
	COI1            *bool   `db:"coi_1" csv:"coi_1,omitempty" json:"coi_1,omitempty"`
	COI2            *bool   `db:"coi_2" csv:"coi_2,omitempty" json:"coi_2,omitempty"`
	COIDisclosure1  *bool   `db:"coi_disclosure_1" csv:"coi_disclosure_1,omitempty" json:"coi_disclosure_1,omitempty"`
	Commercial1     *bool   `db:"commercial_1" csv:"commercial_1,omitempty" json:"commercial_1,omitempty"`
	Benefit1        *bool   `db:"benefit_1" csv:"benefit_1,omitempty" json:"benefit_1,omitempty"`
	Consultant1     *bool   `db:"consultant_1" csv:"consultant_1,omitempty" json:"consultant_1,omitempty"`
	Grants1         *bool   `db:"grants_1" csv:"grants_1,omitempty" json:"grants_1,omitempty"`
	Brief1          *bool   `db:"brief_1" csv:"brief_1,omitempty" json:"brief_1,omitempty"`
	Fees1           *bool   `db:"fees_1" csv:"fees_1,omitempty" json:"fees_1,omitempty"`
	Consults1       *bool   `db:"consults_1" csv:"consults_1,omitempty" json:"consults_1,omitempty"`
	Connect1        *bool   `db:"connect_1" csv:"connect_1,omitempty" json:"connect_1,omitempty"`
	Connect2        *bool   `db:"connect_2" csv:"connect_2,omitempty" json:"connect_2,omitempty"`
	CommercialAck1  *bool   `db:"commercial_ack_1" csv:"commercial_ack_1,omitempty" json:"commercial_ack_1,omitempty"`
	Rights1         *bool   `db:"rights_1" csv:"rights_1,omitempty" json:"rights_1,omitempty"`
	Founder1        *bool   `db:"founder_1" csv:"founder_1,omitempty" json:"founder_1,omitempty"`
	Advisor1        *bool   `db:"advisor_1" csv:"advisor_1,omitempty" json:"advisor_1,omitempty"`
	Paid1           *bool   `db:"paid_1" csv:"paid_1,omitempty" json:"paid_1,omitempty"`
	Board1          *bool   `db:"board_1" csv:"board_1,omitempty" json:"board_1,omitempty"`
	NoCOI1          *bool   `db:"no_coi_1" csv:"no_coi_1,omitempty" json:"no_coi_1,omitempty"`
	NoFunderRole1   *bool   `db:"no_funder_role_1" csv:"no_funder_role_1,omitempty" json:"no_funder_role_1,omitempty"`

	// Funding.
	FundText           *string `db:"fund_text" csv:"fund_text,omitempty" json:"fund_text,omitempty"`
	FundPMCInstitute   *string `db:"fund_pmc_institute" csv:"fund_pmc_institute,omitempty" json:"fund_pmc_institute,omitempty"`
	FundPMCSource      *string `db:"fund_pmc_source" csv:"fund_pmc_source,omitempty" json:"fund_pmc_source,omitempty"`
	FundPMCAnysource   *string `db:"fund_pmc_anysource" csv:"fund_pmc_anysource,omitempty" json:"fund_pmc_anysource,omitempty"`
	IsFundPMCGroup     *bool   `db:"is_fund_pmc_group" csv:"is_fund_pmc_group,omitempty" json:"is_fund_pmc_group,omitempty"`
	IsFundPMCTitle     *bool   `db:"is_fund_pmc_title" csv:"is_fund_pmc_title,omitempty" json:"is_fund_pmc_title,omitempty"`
	IsFundPMCAnysource *bool   `db:"is_fund_pmc_anysource" csv:"is_fund_pmc_anysource,omitempty" json:"is_fund_pmc_anysource,omitempty"`
	IsRelevantFund     *bool   `db:"is_relevant_fund" csv:"is_relevant_fund,omitempty" json:"is_relevant_fund,omitempty"`
	IsExplicitFund     *bool   `db:"is_explicit_fund" csv:"is_explicit_fund,omitempty" json:"is_explicit_fund,omitempty"`
	Support1           *bool   `db:"support_1" csv:"support_1,omitempty" json:"support_1,omitempty"`
	Support3           *bool   `db:"support_3" csv:"support_3,omitempty" json:"support_3,omitempty"`
	Support4           *bool   `db:"support_4" csv:"support_4,omitempty" json:"support_4,omitempty"`
	Support5           *bool   `db:"support_5" csv:"support_5,omitempty" json:"support_5,omitempty"`
	Support6           *bool   `db:"support_6" csv:"support_6,omitempty" json:"support_6,omitempty"`
	Support7           *bool   `db:"support_7" csv:"support_7,omitempty" json:"support_7,omitempty"`
	Support8           *bool   `db:"support_8" csv:"support_8,omitempty" json:"support_8,omitempty"`
	Support9           *bool   `db:"support_9" csv:"support_9,omitempty" json:"support_9,omitempty"`
	Support10          *bool   `db:"support_10" csv:"support_10,omitempty" json:"support_10,omitempty"`
	Developed1         *bool   `db:"developed_1" csv:"developed_1,omitempty" json:"developed_1,omitempty"`
	Received1          *bool   `db:"received_1" csv:"received_1,omitempty" json:"received_1,omitempty"`
	Received2          *bool   `db:"received_2" csv:"received_2,omitempty" json:"received_2,omitempty"`
	Recipient1         *bool   `db:"recipient_1" csv:"recipient_1,omitempty" json:"recipient_1,omitempty"`
	Authors1           *bool   `db:"authors_1" csv:"authors_1,omitempty" json:"authors_1,omitempty"`
	Authors2           *bool   `db:"authors_2" csv:"authors_2,omitempty" json:"authors_2,omitempty"`
	Thank1             *bool   `db:"thank_1" csv:"thank_1,omitempty" json:"thank_1,omitempty"`
	Thank2             *bool   `db:"thank_2" csv:"thank_2,omitempty" json:"thank_2,omitempty"`
	Fund1              *bool   `db:"fund_1" csv:"fund_1,omitempty" json:"fund_1,omitempty"`
	Fund2              *bool   `db:"fund_2" csv:"fund_2,omitempty" json:"fund_2,omitempty"`
	Fund3              *bool   `db:"fund_3" csv:"fund_3,omitempty" json:"fund_3,omitempty"`
	Supported1         *bool   `db:"supported_1" csv:"supported_1,omitempty" json:"supported_1,omitempty"`
	Financial1         *bool   `db:"financial_1" csv:"financial_1,omitempty" json:"financial_1,omitempty"`
	Financial2         *bool   `db:"financial_2" csv:"financial_2,omitempty" json:"financial_2,omitempty"`
	Financial3         *bool   `db:"financial_3" csv:"financial_3,omitempty" json:"financial_3,omitempty"`
	Grant1             *bool   `db:"grant_1" csv:"grant_1,omitempty" json:"grant_1,omitempty"`
	French1            *bool   `db:"french_1" csv:"french_1,omitempty" json:"french_1,omitempty"`
	Common1            *bool   `db:"common_1" csv:"common_1,omitempty" json:"common_1,omitempty"`
	Common2            *bool   `db:"common_2" csv:"common_2,omitempty" json:"common_2,omitempty"`
	Common3            *bool   `db:"common_3" csv:"common_3,omitempty" json:"common_3,omitempty"`
	Common4            *bool   `db:"common_4" csv:"common_4,omitempty" json:"common_4,omitempty"`
	Common5            *bool   `db:"common_5" csv:"common_5,omitempty" json:"common_5,omitempty"`
	Acknow1            *bool   `db:"acknow_1" csv:"acknow_1,omitempty" json:"acknow_1,omitempty"`
	Disclosure1        *bool   `db:"disclosure_1" csv:"disclosure_1,omitempty" json:"disclosure_1,omitempty"`
	Disclosure2        *bool   `db:"disclosure_2" csv:"disclosure_2,omitempty" json:"disclosure_2,omitempty"`
	FundAck            *bool   `db:"fund_ack" csv:"fund_ack,omitempty" json:"fund_ack,omitempty"`
	ProjectAck         *bool   `db:"project_ack" csv:"project_ack,omitempty" json:"project_ack,omitempty"`

	// Registration.
	IsRegisterPred *bool   `db:"is_register_pred" csv:"is_register_pred,omitempty" json:"is_register_pred,omitempty"`
	RegisterText   *string `db:"register_text" csv:"register_text,omitempty" json:"register_text,omitempty"`
	IsResearch     *bool   `db:"is_research" csv:"is_research,omitempty" json:"is_research,omitempty"`
	IsReview       *bool   `db:"is_review" csv:"is_review,omitempty" json:"is_review,omitempty"`
	IsRegPMCTitle  *bool   `db:"is_reg_pmc_title" csv:"is_reg_pmc_title,omitempty" json:"is_reg_pmc_title,omitempty"`
	IsRelevantReg  *bool   `db:"is_relevant_reg" csv:"is_relevant_reg,omitempty" json:"is_relevant_reg,omitempty"`
	IsMethod       *bool   `db:"is_method" csv:"is_method,omitempty" json:"is_method,omitempty"`
	IsNCT          *bool   `db:"is_nct" csv:"is_nct,omitempty" json:"is_nct,omitempty"`
	IsExplicitReg  *bool   `db:"is_explicit_reg" csv:"is_explicit_reg,omitempty" json:"is_explicit_reg,omitempty"`
	Prospero1      *bool   `db:"prospero_1" csv:"prospero_1,omitempty" json:"prospero_1,omitempty"`
	Registered1    *bool   `db:"registered_1" csv:"registered_1,omitempty" json:"registered_1,omitempty"`
	Registered2    *bool   `db:"registered_2" csv:"registered_2,omitempty" json:"registered_2,omitempty"`
	Registered3    *bool   `db:"registered_3" csv:"registered_3,omitempty" json:"registered_3,omitempty"`
	Registered4    *bool   `db:"registered_4" csv:"registered_4,omitempty" json:"registered_4,omitempty"`
	Registered5    *bool   `db:"registered_5" csv:"registered_5,omitempty" json:"registered_5,omitempty"`
	NotRegistered1 *bool   `db:"not_registered_1" csv:"not_registered_1,omitempty" json:"not_registered_1,omitempty"`
	Registration1  *bool   `db:"registration_1" csv:"registration_1,omitempty" json:"registration_1,omitempty"`
	Registration2  *bool   `db:"registration_2" csv:"registration_2,omitempty" json:"registration_2,omitempty"`
	Registration3  *bool   `db:"registration_3" csv:"registration_3,omitempty" json:"registration_3,omitempty"`
	Registration4  *bool   `db:"registration_4" csv:"registration_4,omitempty" json:"registration_4,omitempty"`
	Registry1      *bool   `db:"registry_1" csv:"registry_1,omitempty" json:"registry_1,omitempty"`
	RegTitle1      *bool   `db:"reg_title_1" csv:"reg_title_1,omitempty" json:"reg_title_1,omitempty"`
	RegTitle2      *bool   `db:"reg_title_2" csv:"reg_title_2,omitempty" json:"reg_title_2,omitempty"`
	RegTitle3      *bool   `db:"reg_title_3" csv:"reg_title_3,omitempty" json:"reg_title_3,omitempty"`
	RegTitle4      *bool   `db:"reg_title_4" csv:"reg_title_4,omitempty" json:"reg_title_4,omitempty"`
	FundedCT1      *bool   `db:"funded_ct_1" csv:"funded_ct_1,omitempty" json:"funded_ct_1,omitempty"`
	CT2            *bool   `db:"ct_2" csv:"ct_2,omitempty" json:"ct_2,omitempty"`
	CT3            *bool   `db:"ct_3" csv:"ct_3,omitempty" json:"ct_3,omitempty"`
	Protocol1      *bool   `db:"protocol_1" csv:"protocol_1,omitempty" json:"protocol_1,omitempty"`

	// Article metrics.
	IsSuccess        *bool    `db:"is_success" csv:"is_success,omitempty" json:"is_success,omitempty"`
	IsArt            *bool    `db:"is_art" csv:"is_art,omitempty" json:"is_art,omitempty"`
	Field            *string  `db:"field" csv:"field,omitempty" json:"field,omitempty"`
	Score            *float64 `db:"score" csv:"score,omitempty" json:"score,omitempty"`
	JIF              *float64 `db:"jif" csv:"jif,omitempty" json:"jif,omitempty"`
	EigenfactorScore *float64 `db:"eigenfactor_score" csv:"eigenfactor_score,omitempty" json:"eigenfactor_score,omitempty"`
	NCite            *float64 `db:"n_cite" csv:"n_cite,omitempty" json:"n_cite,omitempty"`

	// Additional extraction fields.
	AffiliationAffID   *string `db:"affiliation_aff_id" csv:"affiliation_aff_id,omitempty" json:"affiliation_aff_id,omitempty"`
	AffiliationAll     *string `db:"affiliation_all" csv:"affiliation_all,omitempty" json:"affiliation_all,omitempty"`
	Article            *string `db:"article" csv:"article,omitempty" json:"article,omitempty"`
	AuthorAffID        *string `db:"author_aff_id" csv:"author_aff_id,omitempty" json:"author_aff_id,omitempty"`
	Correspondence     *string `db:"correspondence" csv:"correspondence,omitempty" json:"correspondence,omitempty"`
	DateEpub           *string `db:"date_epub" csv:"date_epub,omitempty" json:"date_epub,omitempty"`
	DatePpub           *string `db:"date_ppub" csv:"date_ppub,omitempty" json:"date_ppub,omitempty"`
	FundingText        *string `db:"funding_text" csv:"funding_text,omitempty" json:"funding_text,omitempty"`
	IsExplicit         *bool   `db:"is_explicit" csv:"is_explicit,omitempty" json:"is_explicit,omitempty"`
	IsFundPred         *bool   `db:"is_fund_pred" csv:"is_fund_pred,omitempty" json:"is_fund_pred,omitempty"`
	IsFundedPred       *bool   `db:"is_funded_pred" csv:"is_funded_pred,omitempty" json:"is_funded_pred,omitempty"`
	IsRelevant         *bool   `db:"is_relevant" csv:"is_relevant,omitempty" json:"is_relevant,omitempty"`
	IsSupplement       *bool   `db:"is_supplement" csv:"is_supplement,omitempty" json:"is_supplement,omitempty"`
	ISSNEpub           *string `db:"issn_epub" csv:"issn_epub,omitempty" json:"issn_epub,omitempty"`
	ISSNPpub           *string `db:"issn_ppub" csv:"issn_ppub,omitempty" json:"issn_ppub,omitempty"`
	JournalISO         *string `db:"journal_iso" csv:"journal_iso,omitempty" json:"journal_iso,omitempty"`
	JournalNLM         *string `db:"journal_nlm" csv:"journal_nlm,omitempty" json:"journal_nlm,omitempty"`
	License            *string `db:"license" csv:"license,omitempty" json:"license,omitempty"`
	NAffiliation       *string `db:"n_affiliation" csv:"n_affiliation,omitempty" json:"n_affiliation,omitempty"`
	NAuth              *string `db:"n_auth" csv:"n_auth,omitempty" json:"n_auth,omitempty"`
	NFigBody           *string `db:"n_fig_body" csv:"n_fig_body,omitempty" json:"n_fig_body,omitempty"`
	NFigFloats         *string `db:"n_fig_floats" csv:"n_fig_floats,omitempty" json:"n_fig_floats,omitempty"`
	NRef               *string `db:"n_ref" csv:"n_ref,omitempty" json:"n_ref,omitempty"`
	NTableBody         *string `db:"n_table_body" csv:"n_table_body,omitempty" json:"n_table_body,omitempty"`
	NTableFloats       *string `db:"n_table_floats" csv:"n_table_floats,omitempty" json:"n_table_floats,omitempty"`
	OpenCodeStatements *string `db:"open_code_statements" csv:"open_code_statements,omitempty" json:"open_code_statements,omitempty"`
	OpenDataCategory   *string `db:"open_data_category" csv:"open_data_category,omitempty" json:"open_data_category,omitempty"`
	OpenDataStatements *string `db:"open_data_statements" csv:"open_data_statements,omitempty" json:"open_data_statements,omitempty"`
	PII                *string `db:"pii" csv:"pii,omitempty" json:"pii,omitempty"`
	PMCIDUID           *string `db:"pmcid_uid" csv:"pmcid_uid,omitempty" json:"pmcid_uid,omitempty"`
	PublisherID        *string `db:"publisher_id" csv:"publisher_id,omitempty" json:"publisher_id,omitempty"`
	Subject            *string `db:"subject" csv:"subject,omitempty" json:"subject,omitempty"`
	IsDataPred         *bool   `db:"is_data_pred" csv:"is_data_pred,omitempty" json:"is_data_pred,omitempty"`
	IsCodePred         *bool   `db:"is_code_pred" csv:"is_code_pred,omitempty" json:"is_code_pred,omitempty"`
	Funder             *string `db:"funder" csv:"funder,omitempty" json:"funder,omitempty"`

	WorkID       *int64 `db:"work_id" csv:"-" json:"work_id,omitempty"`
	ProvenanceID *int64 `db:"provenance_id" csv:"-" json:"provenance_id,omitempty"`
}

type publicationField struct {
	index  int
	column string
	header string
}

var (
	publicationFieldsOnce sync.Once
	publicationFields     []publicationField
)

func loadPublicationFields() []publicationField {
	publicationFieldsOnce.Do(func() {
		t := reflect.TypeOf(RTransparentPublication{})
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			col := f.Tag.Get("db")
			if col == "" || col == "-" {
				continue
			}
			publicationFields = append(publicationFields, publicationField{
				index:  i,
				column: col,
				header: f.Tag.Get("csv"),
			})
		}
	})
	return publicationFields
}

// PublicationColumns returns the insertable column names of rtransparent_publication
// in struct order.
func PublicationColumns() []string {
	fields := loadPublicationFields()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.column
	}
	return cols
}

// Values returns the column values of p in PublicationColumns order.
// Nil pointers are returned as untyped nil.
func (p *RTransparentPublication) Values() []any {
	fields := loadPublicationFields()
	v := reflect.ValueOf(p).Elem()
	values := make([]any, len(fields))
	for i, f := range fields {
		fv := v.Field(f.index)
		if fv.IsNil() {
			values[i] = nil
			continue
		}
		values[i] = fv.Interface()
	}
	return values
}
