package archive

// imzmlHeaderTemplate is the fixed IMZML document prologue. Its
// instrument-description fields are constants appropriate to this
// pipeline's one supported acquisition mode; only the %s/%d/%f verbs vary
// per dataset. Kept as a literal printf template (not encoding/xml) so the
// sha1sum field's byte offset in the rendered file is exactly
// reproducible across the dummy-checksum and real-checksum writes.
const imzmlHeaderTemplate = `<?xml version="1.0" encoding="ISO-8859-1"?>
<mzML xmlns="http://psi.hupo.org/ms/mzml" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance" xsi:schemaLocation="http://psi.hupo.org/ms/mzml http://psidev.info/files/ms/mzML/xsd/mzML1.1.0_idx.xsd" version="1.1">
    <cvList count="2">
        <cv URI="http://ontologies.berkeleybop.org/pato.obo" fullName="Phenotype And Trait Ontology" id="PATO" version="releases/2017-07-10"/>
        <cv URI="https://raw.githubusercontent.com/hupo-psi/psi-ms-cv/master/psi-ms.obo" fullName="Proteomics Standards Initiative Mass Spectrometry Ontology" id="MS" version="4.1.0"/>
    </cvList>
<fileDescription>
    <fileContent>
        <cvParam cvRef="MS" accession="MS:1000579" name="MS1 spectrum" value=""/>
        <cvParam cvRef="MS" accession="MS:1000128" name="profile spectrum" value=""/>
        <cvParam cvRef="IMS" accession="IMS:1000031" name="processed" value=""/>
        <cvParam cvRef="IMS" accession="IMS:1000080" name="universally unique identifier" value="%s"/>
        <cvParam cvRef="IMS" accession="IMS:1000091" name="ibd SHA-1" value="%s"/>
    </fileContent>
</fileDescription>
<referenceableParamGroupList count="2">
    <referenceableParamGroup id="mzArray">
        <cvParam cvRef="MS" accession="MS:1000576" name="no compression" value=""/>
        <cvParam cvRef="MS" accession="MS:1000514" name="m/z array" unitCvRef="MS" unitAccession="MS:1000040" unitName="m/z"/>
        <cvParam cvRef="MS" accession="MS:1000521" name="32-bit float" value=""/>
        <cvParam cvRef="IMS" accession="IMS:1000101" name="external data" value="true"/>
    </referenceableParamGroup>
    <referenceableParamGroup id="intensityArray">
        <cvParam cvRef="IMS" accession="IMS:1100001" name="16-bit integer" value=""/>
        <cvParam cvRef="MS" accession="MS:1000515" name="intensity array" unitCvRef="MS" unitAccession="MS:1000131" unitName="number of detector counts"/>
        <cvParam cvRef="MS" accession="MS:1000576" name="no compression" value=""/>
        <cvParam cvRef="IMS" accession="IMS:1000101" name="external data" value="true"/>
    </referenceableParamGroup>
</referenceableParamGroupList>
<scanSettingsList count="1">
    <scanSettings id="scanSettings1">
        <cvParam cvRef="IMS" accession="IMS:1000401" name="top down"/>
        <cvParam cvRef="IMS" accession="IMS:1000410" name="meandering"/>
        <cvParam cvRef="IMS" accession="IMS:1000480" name="horizontal line scan"/>
        <cvParam cvRef="IMS" accession="IMS:1000491" name="linescan left right"/>
        <cvParam cvRef="IMS" accession="IMS:1000042" name="max count of pixels x" value="%d"/>
        <cvParam cvRef="IMS" accession="IMS:1000043" name="max count of pixels y" value="%d"/>
        <cvParam cvRef="IMS" accession="IMS:1000046" name="pixel size (x)" value="%f" unitCvRef="UO" unitAccession="UO:0000017" unitName="micrometer"/>
        <cvParam cvRef="IMS" accession="IMS:1000047" name="pixel size y" value="%f" unitCvRef="UO" unitAccession="UO:0000017" unitName="micrometer"/>
        <cvParam cvRef="IMS" accession="IMS:1000044" name="max dimension x" value="%d" unitCvRef="UO" unitAccession="UO:0000017" unitName="micrometer"/>
        <cvParam cvRef="IMS" accession="IMS:1000045" name="max dimension y" value="%d" unitCvRef="UO" unitAccession="UO:0000017" unitName="micrometer"/>
    </scanSettings>
</scanSettingsList>
<instrumentConfigurationList count="1">
    <instrumentConfiguration id="IC1">
        <cvParam cvRef="MS" accession="MS:1000557" name="Trift II BioTRIFT"/>
    </instrumentConfiguration>
</instrumentConfigurationList>
<dataProcessingList count="1">
    <dataProcessing id="export_from_tpx3_to_imzml">
        <processingMethod order="1" softwareRef="tpx3scan">
            <cvParam cvRef="MS" accession="MS:1000544" name="Conversion to mzML" value=""/>
        </processingMethod>
    </dataProcessing>
</dataProcessingList>
<run defaultInstrumentConfigurationRef="IC1" id="Experiment0">
    <spectrumList count="%d" defaultDataProcessingRef="export_from_tpx3_to_imzml">
`

// imzmlFooter closes the elements imzmlHeaderTemplate opens.
const imzmlFooter = `        </spectrumList>
    </run>
</mzML>`

// imzmlSpectrumTemplate is one <spectrum> element. index verbs appear
// twice because the IMZML "Scan=" id is 1-based while the index attribute
// is 0-based.
const imzmlSpectrumTemplate = `<spectrum defaultArrayLength="0" id="Scan=%d"  index="%d">
    <referenceableParamGroupRef ref="spectrum1"/>
    <cvParam cvRef="MS" accession="MS:1000285" name="total ion current" value="%d"/>
    <scanList count="1">
        <cvParam cvRef="MS" accession="MS:1000795" name="no combination"/>
        <scan instrumentConfigurationRef="IC1">
            <cvParam cvRef="IMS" accession="IMS:1000050" name="position x" value="%d"/>
            <cvParam cvRef="IMS" accession="IMS:1000051" name="position y" value="%d"/>
        </scan>
    </scanList>
    <binaryDataArrayList count="2">
        <binaryDataArray encodedLength="0">
            <referenceableParamGroupRef ref="mzArray"/>
            <cvParam accession="IMS:1000103" cvRef="IMS" name="external array length" value="%d"/>
            <cvParam accession="IMS:1000104" cvRef="IMS" name="external encoded length" value="%d"/>
            <cvParam accession="IMS:1000102" cvRef="IMS" name="external offset" value="%d"/>
            <binary/>
        </binaryDataArray>
        <binaryDataArray encodedLength="0">
            <referenceableParamGroupRef ref="intensityArray"/>
            <cvParam accession="IMS:1000103" cvRef="IMS" name="external array length" value="%d"/>
            <cvParam accession="IMS:1000104" cvRef="IMS" name="external encoded length" value="%d"/>
            <cvParam accession="IMS:1000102" cvRef="IMS" name="external offset" value="%d"/>
            <binary/>
        </binaryDataArray>
    </binaryDataArrayList>
</spectrum>
`
