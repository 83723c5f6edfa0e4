package handlers

import "github.com/yungbote/bioterms-backend/internal/terminology"

// vocabularyLicenses holds the license and attribution notice served for
// each vocabulary, in Markdown. The texts summarize the upstream terms;
// deployments redistributing vocabulary content remain bound by the
// upstream licenses themselves.
var vocabularyLicenses = map[terminology.Prefix]string{
	terminology.PrefixHPO: `# Human Phenotype Ontology (HPO)

The Human Phenotype Ontology is developed by the Monarch Initiative and
distributed under its own license, which permits free use with
attribution. See <https://hpo.jax.org/app/license> for the full terms.

Please cite: Gargano et al., *The Human Phenotype Ontology in 2024*,
Nucleic Acids Research.`,

	terminology.PrefixORDO: `# Orphanet Rare Disease Ontology (ORDO)

ORDO is produced by Orphanet (INSERM) and released under the Creative
Commons Attribution 4.0 International license (CC BY 4.0). See
<https://www.orphadata.com/legal-notices/> for details.`,

	terminology.PrefixSNOMED: `# SNOMED CT

SNOMED CT is owned and maintained by SNOMED International. Use requires
an affiliate license or coverage by a national release centre (for UK
deployments, via NHS TRUD). This service does not redistribute SNOMED CT
content to unlicensed parties. See <https://www.snomed.org/licensing>.`,

	terminology.PrefixNCIT: `# NCI Thesaurus (NCIt)

The NCI Thesaurus is produced by the U.S. National Cancer Institute and
is in the public domain, with attribution requested. See
<https://evs.nci.nih.gov/license> for details.`,

	terminology.PrefixOMIM: `# Online Mendelian Inheritance in Man (OMIM)

OMIM is a registered trademark of Johns Hopkins University. Data access
requires registration and is subject to the OMIM terms of use; bulk
redistribution is not permitted. See <https://omim.org/help/agreement>.`,

	terminology.PrefixHGNC: `# HGNC Gene Nomenclature

HGNC data is produced by the HUGO Gene Nomenclature Committee and made
freely available under the Creative Commons CC0 public domain
dedication. See <https://www.genenames.org/about/license/>.`,

	terminology.PrefixHGNCSymbol: `# HGNC Gene Symbols

Gene symbol records are derived from the HUGO Gene Nomenclature
Committee dataset, made freely available under the Creative Commons CC0
public domain dedication. See <https://www.genenames.org/about/license/>.`,

	terminology.PrefixCTV3: `# Clinical Terms Version 3 (CTV3)

CTV3 (Read Codes v3) is distributed by NHS England through TRUD and is
subject to the NHS Digital license terms. The terminology was retired in
2020 and is provided for mapping legacy data only. See
<https://isd.digital.nhs.uk/trud>.`,

	terminology.PrefixEnsembl: `# Ensembl

Ensembl data is produced by EMBL-EBI and is available without
restriction; the Ensembl software is Apache 2.0 licensed. See
<https://www.ensembl.org/info/about/legal/index.html>.`,

	terminology.PrefixReactome: `# Reactome

Reactome is developed by OICR, NYU Langone, EMBL-EBI and OHSU, and its
annotated data is released under the Creative Commons CC0 public domain
dedication. See <https://reactome.org/license>.`,
}

// vocabularyLicense returns the Markdown notice for a prefix; unknown or
// unlisted vocabularies get an empty document rather than an error.
func vocabularyLicense(prefix terminology.Prefix) string {
	return vocabularyLicenses[prefix]
}
